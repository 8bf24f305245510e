package printer

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/philipparndt/modelforge/internal/modelfile"
	"github.com/philipparndt/modelforge/internal/preconditions"
)

// ErrSlicerNotFound is returned when the configured slicer executable does not exist
var ErrSlicerNotFound = errors.New("slicer not found")

const fileToken = "{file}"

// Launcher writes models to a work directory and opens them in a desktop slicer
type Launcher struct {
	workDir string
	logger  *zap.Logger
	start   func(*exec.Cmd) error
}

// NewLauncher creates a launcher writing to workDir (the system temp dir when empty)
func NewLauncher(workDir string, logger *zap.Logger) *Launcher {
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "modelforge")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		workDir: workDir,
		logger:  logger.With(zap.String("component", "slicer")),
		start:   startDetached,
	}
}

// startDetached starts the process without waiting for it
func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// Command builds the slicer invocation for file without starting it
func Command(p *Profile, file string) (*exec.Cmd, error) {
	template := p.SlicerArgs
	if strings.TrimSpace(template) == "" {
		template = DefaultSlicerArgs
	}
	words, err := shellquote.Split(template)
	if err != nil {
		return nil, fmt.Errorf("invalid slicer arguments %q: %w", template, err)
	}

	args := make([]string, 0, len(words)+1)
	substituted := false
	for _, w := range words {
		if strings.Contains(w, fileToken) {
			substituted = true
		}
		args = append(args, strings.ReplaceAll(w, fileToken, file))
	}
	if !substituted {
		args = append(args, file)
	}

	// application bundles are started through open(1)
	if runtime.GOOS == "darwin" && strings.HasSuffix(p.SlicerPath, ".app") {
		return exec.Command("open", append([]string{"-a", p.SlicerPath, "--args"}, args...)...), nil
	}
	return exec.Command(p.SlicerPath, args...), nil
}

// Launch writes payload to the work directory and opens it in the profile's slicer.
// It returns the path of the written file.
func (l *Launcher) Launch(p *Profile, filename string, payload []byte) (string, error) {
	if err := preconditions.CheckExecutable(p.SlicerPath); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSlicerNotFound, err)
	}

	if err := os.MkdirAll(l.workDir, 0o755); err != nil {
		return "", fmt.Errorf("error creating work directory: %w", err)
	}
	path := filepath.Join(l.workDir, modelfile.CleanName(filename))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("error saving model: %w", err)
	}

	cmd, err := Command(p, path)
	if err != nil {
		return "", err
	}
	if err := l.start(cmd); err != nil {
		return "", fmt.Errorf("failed to launch %s: %w", p.SlicerPath, err)
	}

	l.logger.Info("launched slicer",
		zap.String("slicer", string(p.SlicerType)),
		zap.String("path", p.SlicerPath),
		zap.Strings("args", cmd.Args[1:]))
	return path, nil
}
