// Package chat records customization requests per user and answers them with
// the interpreted instruction.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/philipparndt/modelforge/internal/operation"
	"github.com/philipparndt/modelforge/internal/prompt"
)

const (
	// MaxEntries is how many entries a user history keeps
	MaxEntries = 50
	// RecentEntries is how many entries a reply carries
	RecentEntries = 10
)

var ErrEmptyMessage = errors.New("message required")

// Entry is one request with its outcome
type Entry struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"userId"`
	Prompt      string                 `json:"prompt"`
	Instruction *operation.Instruction `json:"instruction,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// History stores the rolling entry window of each user
type History interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, userID string, n int) ([]Entry, error)
}

// Reply is the answer to a submitted prompt
type Reply struct {
	Entry   Entry   `json:"entry"`
	History []Entry `json:"history"`
}

// Service interprets prompts and keeps the history
type Service struct {
	interpreter prompt.Interpreter
	history     History
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a chat service
func NewService(interpreter prompt.Interpreter, history History, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		interpreter: interpreter,
		history:     history,
		logger:      logger.With(zap.String("component", "chat")),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit interprets text and records the result. Interpretation failures are
// recorded in the entry rather than returned.
func (s *Service) Submit(ctx context.Context, userID, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	entry := Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Prompt:    text,
		Timestamp: s.now(),
	}
	instr, err := s.interpreter.Interpret(ctx, text)
	if err != nil {
		s.logger.Warn("interpretation failed", zap.String("user", userID), zap.Error(err))
		entry.Error = err.Error()
	} else {
		entry.Instruction = instr
	}

	if err := s.history.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record chat entry: %w", err)
	}
	recent, err := s.history.Recent(ctx, userID, RecentEntries)
	if err != nil {
		return nil, err
	}
	return &Reply{Entry: entry, History: recent}, nil
}

// Recent returns the last RecentEntries entries of a user
func (s *Service) Recent(ctx context.Context, userID string) ([]Entry, error) {
	return s.history.Recent(ctx, userID, RecentEntries)
}
