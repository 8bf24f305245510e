package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LocalStore keeps a JSON index and the model files in a directory
type LocalStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewLocalStore creates a store below dir
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir, now: func() time.Time { return time.Now().UTC() }}
}

func (s *LocalStore) indexPath() string {
	return filepath.Join(s.dir, "models.json")
}

func (s *LocalStore) filePath(m *Model) string {
	return filepath.Join(s.dir, "files", m.ID+"."+m.Format)
}

func (s *LocalStore) load() ([]*Model, error) {
	data, err := os.ReadFile(s.indexPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading model index: %w", err)
	}
	var models []*Model
	if err := json.Unmarshal(data, &models); err != nil {
		return nil, fmt.Errorf("error parsing model index: %w", err)
	}
	return models, nil
}

func (s *LocalStore) save(models []*Model) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	if models == nil {
		models = []*Model{}
	}
	data, err := json.MarshalIndent(models, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.indexPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("error writing model index: %w", err)
	}
	return os.Rename(tmp, s.indexPath())
}

func (s *LocalStore) find(models []*Model, userID, id string) (int, error) {
	for i, m := range models {
		if m.ID == id && m.UserID == userID {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns the models of userID, newest first
func (s *LocalStore) List(_ context.Context, userID string) ([]*Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	models, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []*Model
	for _, m := range models {
		if m.UserID == userID {
			m.URL = "file://" + filepath.ToSlash(s.filePath(m))
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *LocalStore) Get(_ context.Context, userID, id string) (*Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	models, err := s.load()
	if err != nil {
		return nil, err
	}
	i, err := s.find(models, userID, id)
	if err != nil {
		return nil, err
	}
	return models[i], nil
}

func (s *LocalStore) Create(_ context.Context, userID string, m *Model, data []byte) (*Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	models, err := s.load()
	if err != nil {
		return nil, err
	}

	now := s.now()
	m.ID = uuid.NewString()
	m.UserID = userID
	m.FileSize = int64(len(data))
	m.CreatedAt = now
	m.UpdatedAt = now

	path := s.filePath(m)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("error saving model file: %w", err)
	}

	if err := s.save(append(models, m)); err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return m, nil
}

func (s *LocalStore) Open(_ context.Context, userID, id string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	models, err := s.load()
	if err != nil {
		return nil, err
	}
	i, err := s.find(models, userID, id)
	if err != nil {
		return nil, err
	}
	return os.Open(s.filePath(models[i]))
}

func (s *LocalStore) Rename(_ context.Context, userID, id, name string) (*Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	models, err := s.load()
	if err != nil {
		return nil, err
	}
	i, err := s.find(models, userID, id)
	if err != nil {
		return nil, err
	}
	models[i].Name = name
	models[i].UpdatedAt = s.now()
	if err := s.save(models); err != nil {
		return nil, err
	}
	return models[i], nil
}

func (s *LocalStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	models, err := s.load()
	if err != nil {
		return err
	}
	i, err := s.find(models, userID, id)
	if err != nil {
		return err
	}
	path := s.filePath(models[i])
	if err := s.save(append(models[:i], models[i+1:]...)); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error removing model file: %w", err)
	}
	return nil
}
