// Package objectstore keeps premium model files in S3 compatible storage or on disk.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/philipparndt/modelforge/internal/config"
)

// ErrNotFound is returned for missing objects
var ErrNotFound = errors.New("object not found")

// Object describes a stored file
type Object struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Store is a flat key space of files
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Object, error)
	// URL returns a link the client can download the object from
	URL(ctx context.Context, key string) (string, error)
}

// ModelKey builds models/{user}/{unixms}-{file}
func ModelKey(userID, filename string, at time.Time) string {
	return fmt.Sprintf("models/%s/%d-%s", userID, at.UnixMilli(), path.Base(strings.ReplaceAll(filename, "\\", "/")))
}

// UserPrefix prefixes every model key of a user
func UserPrefix(userID string) string {
	return "models/" + userID + "/"
}

// New opens the store selected by cfg.Driver
func New(ctx context.Context, cfg config.ObjectStoreConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg, logger)
	case "fs", "":
		return NewFSStore(cfg.Dir)
	}
	return nil, fmt.Errorf("unsupported object store driver: %s", cfg.Driver)
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}
