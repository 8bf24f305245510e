package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/philipparndt/modelforge/internal/kv"
	"github.com/philipparndt/modelforge/internal/modelfile"
	"github.com/philipparndt/modelforge/internal/objectstore"
)

// ImportedModel is the database row of a premium model
type ImportedModel struct {
	ID          string    `gorm:"primaryKey;size:36"`
	UserID      string    `gorm:"size:64;not null;index"`
	Name        string    `gorm:"size:255;not null"`
	Description string    `gorm:"type:text"`
	Format      string    `gorm:"size:8;not null"`
	FileKey     string    `gorm:"size:512;not null"`
	FileSize    int64     `gorm:"not null"`
	Thumbnail   string    `gorm:"size:16"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (ImportedModel) TableName() string {
	return "imported_models"
}

func (r *ImportedModel) model() *Model {
	return &Model{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		Description: r.Description,
		Format:      r.Format,
		FileSize:    r.FileSize,
		Thumbnail:   r.Thumbnail,
		FileKey:     r.FileKey,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Models lists the rows this package migrates
func Models() []any {
	return []any{&ImportedModel{}}
}

// RemoteStore keeps rows in the database and files in object storage. When a
// kv store is given, model metadata is mirrored there for quick lookups.
type RemoteStore struct {
	db      *gorm.DB
	objects objectstore.Store
	cache   kv.Store
	logger  *zap.Logger
	now     func() time.Time
}

// NewRemoteStore wires the premium store; cache may be nil
func NewRemoteStore(db *gorm.DB, objects objectstore.Store, cache kv.Store, logger *zap.Logger) *RemoteStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteStore{
		db:      db,
		objects: objects,
		cache:   cache,
		logger:  logger.With(zap.String("component", "gallery_remote")),
		now:     time.Now,
	}
}

func (s *RemoteStore) row(ctx context.Context, userID, id string) (*ImportedModel, error) {
	var r ImportedModel
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", id, err)
	}
	return &r, nil
}

func (s *RemoteStore) resolveURL(ctx context.Context, m *Model) {
	u, err := s.objects.URL(ctx, m.FileKey)
	if err != nil {
		s.logger.Warn("could not resolve model url", zap.String("key", m.FileKey), zap.Error(err))
		return
	}
	m.URL = u
}

func (s *RemoteStore) cachePut(ctx context.Context, m *Model) {
	if s.cache == nil {
		return
	}
	if err := kv.SetJSON(ctx, s.cache, kv.ModelKey(m.UserID, m.ID), m, 0); err != nil {
		s.logger.Warn("metadata cache write failed", zap.String("model", m.ID), zap.Error(err))
	}
}

func (s *RemoteStore) cacheDrop(ctx context.Context, userID, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, kv.ModelKey(userID, id)); err != nil {
		s.logger.Warn("metadata cache delete failed", zap.String("model", id), zap.Error(err))
	}
}

// List returns the models of userID, newest first, with download URLs
func (s *RemoteStore) List(ctx context.Context, userID string) ([]*Model, error) {
	var rows []ImportedModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	out := make([]*Model, 0, len(rows))
	for i := range rows {
		m := rows[i].model()
		s.resolveURL(ctx, m)
		out = append(out, m)
	}
	return out, nil
}

// Get reads the metadata cache first and falls back to the database
func (s *RemoteStore) Get(ctx context.Context, userID, id string) (*Model, error) {
	if s.cache != nil {
		var m Model
		if err := kv.GetJSON(ctx, s.cache, kv.ModelKey(userID, id), &m); err == nil {
			s.resolveURL(ctx, &m)
			return &m, nil
		}
	}
	r, err := s.row(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	m := r.model()
	s.cachePut(ctx, m)
	s.resolveURL(ctx, m)
	return m, nil
}

// Create uploads the file and inserts the row. The upload is removed again if the insert fails.
func (s *RemoteStore) Create(ctx context.Context, userID string, m *Model, data []byte) (*Model, error) {
	format, err := modelfile.ParseFormat(m.Format)
	if err != nil {
		return nil, err
	}
	key := objectstore.ModelKey(userID, m.Name+format.Extension(), s.now())
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), format.ContentType()); err != nil {
		return nil, err
	}

	r := &ImportedModel{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        m.Name,
		Description: m.Description,
		Format:      m.Format,
		FileKey:     key,
		FileSize:    int64(len(data)),
		Thumbnail:   m.Thumbnail,
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		if derr := s.objects.Delete(ctx, key); derr != nil {
			s.logger.Warn("orphaned upload", zap.String("key", key), zap.Error(derr))
		}
		return nil, fmt.Errorf("failed to save model: %w", err)
	}

	out := r.model()
	s.cachePut(ctx, out)
	s.resolveURL(ctx, out)
	s.logger.Info("imported model", zap.String("user", userID), zap.String("model", out.ID), zap.String("key", key))
	return out, nil
}

func (s *RemoteStore) Open(ctx context.Context, userID, id string) (io.ReadCloser, error) {
	r, err := s.row(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.objects.Get(ctx, r.FileKey)
}

func (s *RemoteStore) Rename(ctx context.Context, userID, id, name string) (*Model, error) {
	r, err := s.row(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(r).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("failed to rename model %s: %w", id, err)
	}
	r.Name = name
	m := r.model()
	s.cachePut(ctx, m)
	s.resolveURL(ctx, m)
	return m, nil
}

// Delete removes the row, the stored file and the cached metadata
func (s *RemoteStore) Delete(ctx context.Context, userID, id string) error {
	r, err := s.row(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(r).Error; err != nil {
		return fmt.Errorf("failed to delete model %s: %w", id, err)
	}
	if err := s.objects.Delete(ctx, r.FileKey); err != nil {
		s.logger.Warn("stored file not removed", zap.String("key", r.FileKey), zap.Error(err))
	}
	s.cacheDrop(ctx, userID, id)
	return nil
}
