// Package gallery lists, imports and manages the models of a user. Free users
// keep models in a local JSON index, premium users in the database and object storage.
package gallery

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound          = errors.New("model not found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrReadOnly          = errors.New("built-in models cannot be changed")
	ErrInvalidModel      = errors.New("invalid model file")
)

// Model is a gallery entry
type Model struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Format      string    `json:"format"`
	FileSize    int64     `json:"fileSize"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	FileKey     string    `json:"fileKey,omitempty"`
	URL         string    `json:"url,omitempty"`
	Builtin     bool      `json:"builtin,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Upload is a file to import
type Upload struct {
	Filename    string
	Name        string
	Description string
	Data        []byte
}

// Store keeps the imported models of users
type Store interface {
	List(ctx context.Context, userID string) ([]*Model, error)
	Get(ctx context.Context, userID, id string) (*Model, error)
	Create(ctx context.Context, userID string, m *Model, data []byte) (*Model, error)
	Open(ctx context.Context, userID, id string) (io.ReadCloser, error)
	Rename(ctx context.Context, userID, id, name string) (*Model, error)
	Delete(ctx context.Context, userID, id string) error
}

const defaultThumbnail = "📁"
