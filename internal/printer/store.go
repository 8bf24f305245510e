package printer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProfileNotFound = errors.New("printer profile not found")
	ErrNoProfiles      = errors.New("no printer profiles configured")
)

const backupVersion = 1

// Backup is the on-disk and export format of the profile store
type Backup struct {
	Version          int        `json:"version"`
	Exported         time.Time  `json:"exported"`
	DefaultPrinterID string     `json:"defaultPrinterId,omitempty"`
	Profiles         []*Profile `json:"profiles"`
}

// Store keeps printer profiles in a JSON file
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewStore creates a store backed by the file at path. The file is created on first save.
func NewStore(path string) *Store {
	return &Store{path: path, now: func() time.Time { return time.Now().UTC() }}
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (*Backup, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Backup{Version: backupVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading printer profiles: %w", err)
	}
	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("error parsing printer profiles: %w", err)
	}
	return &b, nil
}

func (s *Store) save(b *Backup) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("error creating profile directory: %w", err)
	}
	b.Version = backupVersion
	b.Exported = s.now()
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("error writing printer profiles: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// List returns all saved profiles
func (s *Store) List() ([]*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return nil, err
	}
	return b.Profiles, nil
}

// Get returns the profile with the given ID
func (s *Store) Get(id string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return nil, err
	}
	if p := find(b.Profiles, id); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
}

func find(profiles []*Profile, id string) *Profile {
	for _, p := range profiles {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Save validates and inserts or replaces a profile. A missing ID is generated.
func (s *Store) Save(p *Profile) (*Profile, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return nil, err
	}

	now := s.now()
	if p.ID == "" {
		p.ID = "printer_" + uuid.NewString()
	}
	if p.Created.IsZero() {
		p.Created = now
	}
	p.Modified = now

	replaced := false
	for i, existing := range b.Profiles {
		if existing.ID == p.ID {
			b.Profiles[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		b.Profiles = append(b.Profiles, p)
	}

	if err := s.save(b); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a profile and clears the default if it pointed at it
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return err
	}

	kept := b.Profiles[:0]
	for _, p := range b.Profiles {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(b.Profiles) {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	b.Profiles = kept
	if b.DefaultPrinterID == id {
		b.DefaultPrinterID = ""
	}
	return s.save(b)
}

// SetDefault marks a profile as default. An empty id clears the default.
func (s *Store) SetDefault(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return err
	}
	if id != "" && find(b.Profiles, id) == nil {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	b.DefaultPrinterID = id
	return s.save(b)
}

// Default returns the default profile, or the first profile when none is set
func (s *Store) Default() (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return nil, err
	}
	if b.DefaultPrinterID != "" {
		if p := find(b.Profiles, b.DefaultPrinterID); p != nil {
			return p, nil
		}
	}
	if len(b.Profiles) == 0 {
		return nil, ErrNoProfiles
	}
	return b.Profiles[0], nil
}

// DefaultID returns the explicitly chosen default, if any
func (s *Store) DefaultID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return "", err
	}
	return b.DefaultPrinterID, nil
}

// Export returns a JSON backup of all profiles and the default choice
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return nil, err
	}
	b.Version = backupVersion
	b.Exported = s.now()
	if b.Profiles == nil {
		b.Profiles = []*Profile{}
	}
	return json.MarshalIndent(b, "", "  ")
}

// Import replaces all profiles with the ones in a backup and returns how many were imported
func (s *Store) Import(data []byte) (int, error) {
	var raw struct {
		DefaultPrinterID string      `json:"defaultPrinterId"`
		Profiles         *[]*Profile `json:"profiles"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("invalid import data: %w", err)
	}
	if raw.Profiles == nil {
		return 0, errors.New("invalid import data format: profiles missing")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return 0, err
	}
	b.Profiles = *raw.Profiles
	if raw.DefaultPrinterID != "" {
		b.DefaultPrinterID = raw.DefaultPrinterID
	}
	if err := s.save(b); err != nil {
		return 0, err
	}
	return len(b.Profiles), nil
}
