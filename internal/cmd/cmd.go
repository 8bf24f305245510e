package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/philipparndt/modelforge/internal/app"
	"github.com/philipparndt/modelforge/internal/auth"
	"github.com/philipparndt/modelforge/internal/config"
	"github.com/philipparndt/modelforge/internal/inspect"
	"github.com/philipparndt/modelforge/internal/logging"
	"github.com/philipparndt/modelforge/internal/prompt"
	"github.com/philipparndt/modelforge/internal/server"
	"github.com/philipparndt/modelforge/internal/ui"
	"github.com/philipparndt/modelforge/version"
)

// Globals are the flags shared by every command
type Globals struct {
	Config  string `help:"Configuration file" type:"path" env:"MODELFORGE_CONFIG"`
	User    string `help:"Act as this user id instead of user.id from the configuration"`
	Verbose bool   `help:"Print every step" short:"v"`
}

type CLI struct {
	Globals

	Customize  *CustomizeCmd  `cmd:"" help:"Change a model with a plain-language prompt"`
	Interpret  *InterpretCmd  `cmd:"" help:"Show the operation a prompt resolves to"`
	Chat       *ChatCmd       `cmd:"" help:"Send a chat message and show the recent conversation"`
	Inspect    *InspectCmd    `cmd:"" help:"Inspect a model file and show its contents"`
	Gallery    *GalleryCmd    `cmd:"" help:"Manage the models of your gallery"`
	Printer    *PrinterCmd    `cmd:"" help:"Manage printer profiles and send models"`
	Account    *AccountCmd    `cmd:"" help:"Show or upgrade your subscription"`
	Token      *TokenCmd      `cmd:"" help:"Issue an API bearer token"`
	Serve      *ServeCmd      `cmd:"" help:"Run the HTTP API"`
	Version    *VersionCmd    `cmd:"" help:"Show version information"`
	Completion *CompletionCmd `cmd:"" help:"Generate shell completion script"`
}

// loadConfig reads the configuration and applies the global overrides
func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader().WithConfigPath(g.Config).Load()
	if err != nil {
		return nil, err
	}
	if g.User != "" {
		cfg.User.ID = g.User
		cfg.User.Email = ""
	}
	ui.SetVerbose(g.Verbose)
	return cfg, nil
}

// open builds every service. The caller closes the app.
func (g *Globals) open(ctx context.Context) (*app.App, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logging.New(cfg.Log))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}

type InterpretCmd struct {
	Prompt []string `arg:"" help:"Prompt to interpret"`
	Remote bool     `help:"Use the remote language model even if interpreter.mode is local"`
}

func (c *InterpretCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if c.Remote {
		cfg.Interpreter.Mode = "remote"
	}
	interpreter, err := prompt.New(cfg.Interpreter, logging.New(cfg.Log))
	if err != nil {
		return err
	}
	inst, err := interpreter.Interpret(ctx, strings.Join(c.Prompt, " "))
	if err != nil {
		return err
	}
	return ui.PrintJSON(inst)
}

type ChatCmd struct {
	Message []string `arg:"" optional:"" help:"Message to send; omit to only show the history"`
}

func (c *ChatCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	userID := a.User().ID
	if len(c.Message) > 0 {
		reply, err := a.Chat.Submit(ctx, userID, strings.Join(c.Message, " "))
		if err != nil {
			return err
		}
		if reply.Entry.Error != "" {
			ui.PrintWarning(reply.Entry.Error)
		}
	}

	entries, err := a.Chat.Recent(ctx, userID)
	if err != nil {
		return err
	}
	ui.PrintHeader("Conversation")
	for _, e := range entries {
		ui.PrintItem("you: " + e.Prompt)
		switch {
		case e.Error != "":
			ui.PrintError("  " + e.Error)
		case e.Instruction != nil:
			ui.PrintInfo(fmt.Sprintf("  %s (%s)", e.Instruction.Explanation, e.Instruction.Op.Name()))
		}
	}
	return nil
}

type InspectCmd struct {
	File string `arg:"" help:"STL, OBJ or 3MF file to inspect" type:"existingfile"`
}

func (c *InspectCmd) Run() error {
	inspector := inspect.NewInspector()
	return inspector.Inspect(c.File)
}

type ServeCmd struct {
	Addr string `help:"Listen address, overrides server.addr"`
}

func (c *ServeCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.Config.Server
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	a.Logger.Info("starting modelforge", zap.String("version", version.Version))
	return server.New(cfg, a.ServerServices(), a.Logger).Run(ctx)
}

type TokenCmd struct {
	Subject string        `arg:"" optional:"" help:"User id; defaults to the configured user"`
	Email   string        `help:"Email claim"`
	TTL     time.Duration `help:"Lifetime of the token" default:"24h"`
}

func (c *TokenCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokens(cfg.Auth)
	if err != nil {
		return fmt.Errorf("%w: set auth.jwt_secret", err)
	}
	u := auth.User{ID: cfg.User.ID, Email: cfg.User.Email}
	if c.Subject != "" {
		u = auth.User{ID: c.Subject}
	}
	if c.Email != "" {
		u.Email = c.Email
	}
	token, err := tokens.Issue(u, c.TTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := version.Get()
	fmt.Println(info.String())
	return nil
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("modelforge"),
		kong.Description("Customize 3D models with plain language and send them to your printer"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	}, options...)
	return kong.New(cli, options...)
}

// Execute parses args and runs the selected command
func Execute(ctx context.Context, args []string, options ...kong.Option) error {
	cli := &CLI{}
	parser, err := newParser(cli, append(options, kong.BindTo(ctx, (*context.Context)(nil)))...)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run(&cli.Globals)
}

// Parse parses command line arguments and executes the appropriate command
func Parse() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Execute(ctx, os.Args[1:]); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}
