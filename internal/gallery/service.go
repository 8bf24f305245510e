package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/philipparndt/modelforge/internal/account"
	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/modelfile"
	"github.com/philipparndt/modelforge/internal/stl"
)

// TierSource reports the subscription tier of a user
type TierSource interface {
	Tier(ctx context.Context, userID string) account.Tier
}

// Service routes gallery operations to the store of the user's tier
type Service struct {
	tiers  TierSource
	local  Store
	remote Store
	logger *zap.Logger
}

// NewService creates the gallery. A nil remote store keeps premium users local.
func NewService(tiers TierSource, local, remote Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{tiers: tiers, local: local, remote: remote, logger: logger.With(zap.String("component", "gallery"))}
}

func (s *Service) store(ctx context.Context, userID string) Store {
	if s.remote != nil && s.tiers.Tier(ctx, userID) == account.TierPremium {
		return s.remote
	}
	return s.local
}

// List returns the built-in catalog followed by the user's imported models
func (s *Service) List(ctx context.Context, userID string) ([]*Model, error) {
	imported, err := s.store(ctx, userID).List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return append(Catalog(), imported...), nil
}

// Get returns one model by ID
func (s *Service) Get(ctx context.Context, userID, id string) (*Model, error) {
	if IsBuiltin(id) {
		for _, m := range Catalog() {
			if m.ID == id {
				return m, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.store(ctx, userID).Get(ctx, userID, id)
}

// Import validates the file and stores it for the user's tier
func (s *Service) Import(ctx context.Context, userID string, up Upload) (*Model, error) {
	format, err := modelfile.DetectFormat(up.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (supported: .stl, .obj, .3mf)", ErrUnsupportedFormat, up.Filename)
	}
	if _, err := modelfile.Decode(format, up.Filename, bytes.NewReader(up.Data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}

	name := strings.TrimSpace(up.Name)
	if name == "" {
		name = modelfile.BaseName(up.Filename)
	}
	m := &Model{
		Name:        name,
		Description: up.Description,
		Format:      string(format),
		Thumbnail:   defaultThumbnail,
	}

	store := s.store(ctx, userID)
	created, err := store.Create(ctx, userID, m, up.Data)
	if err != nil {
		return nil, err
	}
	s.logger.Info("model imported",
		zap.String("user", userID),
		zap.String("model", created.ID),
		zap.String("format", created.Format),
		zap.Int64("bytes", created.FileSize))
	return created, nil
}

// Open loads the mesh of a model
func (s *Service) Open(ctx context.Context, userID, id string) (*geometry.Mesh, error) {
	if IsBuiltin(id) {
		return BuiltinMesh(id)
	}
	m, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	rc, err := s.store(ctx, userID).Open(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	mesh, err := modelfile.Decode(modelfile.Format(m.Format), m.Name, rc)
	if err != nil {
		return nil, err
	}
	mesh.Name = m.Name
	return mesh, nil
}

// File returns the stored file of a model. Built-in models are rendered as binary STL.
func (s *Service) File(ctx context.Context, userID, id string) (io.ReadCloser, *Model, error) {
	m, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	if m.Builtin {
		mesh, err := BuiltinMesh(id)
		if err != nil {
			return nil, nil, err
		}
		var buf bytes.Buffer
		if err := stl.NewWriter().EncodeBinary(&buf, mesh); err != nil {
			return nil, nil, err
		}
		return io.NopCloser(&buf), m, nil
	}
	rc, err := s.store(ctx, userID).Open(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	return rc, m, nil
}

// Rename changes the display name of an imported model
func (s *Service) Rename(ctx context.Context, userID, id, name string) (*Model, error) {
	if IsBuiltin(id) {
		return nil, ErrReadOnly
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("model name must not be empty")
	}
	return s.store(ctx, userID).Rename(ctx, userID, id, name)
}

// Delete removes an imported model
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if IsBuiltin(id) {
		return ErrReadOnly
	}
	if err := s.store(ctx, userID).Delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("model deleted", zap.String("user", userID), zap.String("model", id))
	return nil
}
