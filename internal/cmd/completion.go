package cmd

import (
	"fmt"
	"io"
	"os"
)

type CompletionCmd struct {
	Shell string `arg:"" help:"Shell type: bash, zsh, or fish" enum:"bash,zsh,fish"`
}

func (c *CompletionCmd) Run() error {
	return writeCompletion(os.Stdout, c.Shell)
}

func writeCompletion(w io.Writer, shell string) error {
	var script string
	switch shell {
	case "bash":
		script = bashCompletion
	case "zsh":
		script = zshCompletion
	case "fish":
		script = fishCompletion
	default:
		return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish)", shell)
	}
	_, err := io.WriteString(w, script)
	return err
}

const bashCompletion = `# bash completion for modelforge

_modelforge_completions() {
    local cur prev opts
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    # Main commands
    if [[ ${COMP_CWORD} -eq 1 ]]; then
        opts="customize interpret chat inspect gallery printer account token serve version completion"
        COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
        return 0
    fi

    case "${COMP_WORDS[1]}" in
        customize)
            case "${prev}" in
                -o|--output)
                    COMPREPLY=( $(compgen -f -X '!*.@(stl|obj|3mf)' -- ${cur}) )
                    return 0
                    ;;
                -f|--format)
                    COMPREPLY=( $(compgen -W "stl obj 3mf" -- ${cur}) )
                    return 0
                    ;;
                --operation)
                    COMPREPLY=( $(compgen -W "scale rotate mirror move color resize addBase hollow support addHoles" -- ${cur}) )
                    return 0
                    ;;
                -p|--prompt|--params|--printer)
                    return 0
                    ;;
            esac
            if [[ ${cur} == -* ]]; then
                opts="-p --prompt --operation --params -o --output -f --format --printer --send --open -h --help"
                COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            else
                COMPREPLY=( $(compgen -f -X '!*.@(stl|obj|3mf)' -- ${cur}) )
            fi
            return 0
            ;;
        inspect)
            COMPREPLY=( $(compgen -f -X '!*.@(stl|obj|3mf)' -- ${cur}) )
            return 0
            ;;
        gallery)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "list import rename delete export search" -- ${cur}) )
            elif [[ ${COMP_WORDS[2]} == "import" ]]; then
                COMPREPLY=( $(compgen -f -X '!*.@(stl|obj|3mf)' -- ${cur}) )
            fi
            return 0
            ;;
        printer)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "list add remove default test send export import" -- ${cur}) )
            elif [[ ${prev} == "-t" || ${prev} == "--type" ]]; then
                COMPREPLY=( $(compgen -W "slicer octoprint klipper prusalink usb" -- ${cur}) )
            elif [[ ${COMP_WORDS[2]} == "send" ]]; then
                COMPREPLY=( $(compgen -f -X '!*.@(stl|obj|3mf)' -- ${cur}) )
            elif [[ ${COMP_WORDS[2]} == "import" ]]; then
                COMPREPLY=( $(compgen -f -X '!*.json' -- ${cur}) )
            fi
            return 0
            ;;
        account)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "show upgrade manage" -- ${cur}) )
            fi
            return 0
            ;;
        completion)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            return 0
            ;;
    esac
}

complete -F _modelforge_completions modelforge
`

const zshCompletion = `#compdef modelforge

_modelforge() {
    local -a commands
    commands=(
        'customize:Change a model with a plain-language prompt'
        'interpret:Show the operation a prompt resolves to'
        'chat:Send a chat message and show the recent conversation'
        'inspect:Inspect a model file and show its contents'
        'gallery:Manage the models of your gallery'
        'printer:Manage printer profiles and send models'
        'account:Show or upgrade your subscription'
        'token:Issue an API bearer token'
        'serve:Run the HTTP API'
        'version:Show version information'
        'completion:Generate shell completion script'
    )

    local -a customize_opts
    customize_opts=(
        '(-p --prompt)'{-p,--prompt}'[What to change]:prompt:'
        '--operation[Apply this operation]:operation:(scale rotate mirror move color resize addBase hollow support addHoles)'
        '--params[JSON parameters of --operation]:json:'
        '(-o --output)'{-o,--output}'[Output file path]:output file:_files -g "*.{stl,obj,3mf}"'
        '(-f --format)'{-f,--format}'[Output format]:format:(stl obj 3mf)'
        '--printer[Printer profile id]:id:'
        '--send[Send the result to the default printer]'
        '--open[Open the result file in the default application]'
        '(-h --help)'{-h,--help}'[Show help]'
        '1:model:_files -g "*.{stl,obj,3mf}"'
    )

    _arguments -C \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                customize)
                    _arguments $customize_opts
                    ;;
                inspect)
                    _arguments '*:model file:_files -g "*.{stl,obj,3mf}"'
                    ;;
                gallery)
                    _values 'gallery command' list import rename delete export search
                    ;;
                printer)
                    _values 'printer command' list add remove default test send export import
                    ;;
                account)
                    _values 'account command' show upgrade manage
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
                *)
                    _arguments '(-h --help)'{-h,--help}'[Show help]'
                    ;;
            esac
            ;;
    esac
}

_modelforge
`

const fishCompletion = `# fish completion for modelforge

# Main commands
complete -c modelforge -f -n "__fish_use_subcommand" -a "customize" -d "Change a model with a plain-language prompt"
complete -c modelforge -f -n "__fish_use_subcommand" -a "interpret" -d "Show the operation a prompt resolves to"
complete -c modelforge -f -n "__fish_use_subcommand" -a "chat" -d "Send a chat message and show the recent conversation"
complete -c modelforge -f -n "__fish_use_subcommand" -a "inspect" -d "Inspect a model file and show its contents"
complete -c modelforge -f -n "__fish_use_subcommand" -a "gallery" -d "Manage the models of your gallery"
complete -c modelforge -f -n "__fish_use_subcommand" -a "printer" -d "Manage printer profiles and send models"
complete -c modelforge -f -n "__fish_use_subcommand" -a "account" -d "Show or upgrade your subscription"
complete -c modelforge -f -n "__fish_use_subcommand" -a "token" -d "Issue an API bearer token"
complete -c modelforge -f -n "__fish_use_subcommand" -a "serve" -d "Run the HTTP API"
complete -c modelforge -f -n "__fish_use_subcommand" -a "version" -d "Show version information"
complete -c modelforge -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"

# customize command options
complete -c modelforge -f -n "__fish_seen_subcommand_from customize" -s p -l prompt -d "What to change" -r
complete -c modelforge -f -n "__fish_seen_subcommand_from customize" -l operation -d "Apply this operation" -r -a "scale rotate mirror move color resize addBase hollow support addHoles"
complete -c modelforge -f -n "__fish_seen_subcommand_from customize" -l params -d "JSON parameters of --operation" -r
complete -c modelforge -f -n "__fish_seen_subcommand_from customize" -s o -l output -d "Output file path" -r
complete -c modelforge -f -n "__fish_seen_subcommand_from customize" -s f -l format -d "Output format" -r -a "stl obj 3mf"
complete -c modelforge -f -n "__fish_seen_subcommand_from customize" -l printer -d "Printer profile id" -r
complete -c modelforge -f -n "__fish_seen_subcommand_from customize" -l send -d "Send the result to the default printer"
complete -c modelforge -f -n "__fish_seen_subcommand_from customize" -l open -d "Open the result file in the default application"
complete -c modelforge -n "__fish_seen_subcommand_from customize inspect" -a "(__fish_complete_suffix .stl)" -d "STL file"
complete -c modelforge -n "__fish_seen_subcommand_from customize inspect" -a "(__fish_complete_suffix .obj)" -d "OBJ file"
complete -c modelforge -n "__fish_seen_subcommand_from customize inspect" -a "(__fish_complete_suffix .3mf)" -d "3MF file"

# subcommands
complete -c modelforge -f -n "__fish_seen_subcommand_from gallery" -a "list import rename delete export search"
complete -c modelforge -f -n "__fish_seen_subcommand_from printer" -a "list add remove default test send export import"
complete -c modelforge -f -n "__fish_seen_subcommand_from account" -a "show upgrade manage"

# completion command options
complete -c modelforge -f -n "__fish_seen_subcommand_from completion" -a "bash" -d "Generate bash completion"
complete -c modelforge -f -n "__fish_seen_subcommand_from completion" -a "zsh" -d "Generate zsh completion"
complete -c modelforge -f -n "__fish_seen_subcommand_from completion" -a "fish" -d "Generate fish completion"
`

func (c *CompletionCmd) Help() string {
	return `
Generate shell completion scripts for modelforge.

Examples:
  # Bash
  modelforge completion bash > ~/.local/share/bash-completion/completions/modelforge

  # Zsh
  modelforge completion zsh > ~/.zsh/completion/_modelforge

  # Fish
  modelforge completion fish > ~/.config/fish/completions/modelforge.fish
`
}
