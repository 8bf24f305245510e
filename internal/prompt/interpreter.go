// Package prompt turns free-text customization requests into operations.
package prompt

import (
	"context"
	"fmt"

	"github.com/philipparndt/modelforge/internal/config"
	"github.com/philipparndt/modelforge/internal/operation"
	"go.uber.org/zap"
)

// Interpreter resolves a prompt to an instruction
type Interpreter interface {
	Interpret(ctx context.Context, text string) (*operation.Instruction, error)
}

// New selects the local keyword interpreter or a remote vendor from configuration
func New(cfg config.InterpreterConfig, logger *zap.Logger) (Interpreter, error) {
	switch cfg.Mode {
	case "", "local":
		return NewKeyword(), nil
	case "remote":
		return NewRemote(RemoteConfig{
			Provider: cfg.Provider,
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Timeout:  cfg.Timeout,
		}, logger)
	}
	return nil, fmt.Errorf("unknown interpreter mode %q", cfg.Mode)
}
