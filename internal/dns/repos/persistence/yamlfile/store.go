// Package yamlfile persists the zone collection as a single human-editable YAML document.
package yamlfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/haukened/rr-zoned/internal/dns/domain"
)

// document is the on-disk layout.
type document struct {
	Zones []domain.Zone `yaml:"zones"`
}

// Store reads and writes zones to one YAML file. Writes go to a temporary file in the
// same directory which is then renamed over the target, so readers never see a partial file.
type Store struct {
	mu   sync.Mutex
	path string
}

// New returns a Store for path. The file is not touched until the first load or save.
func New(path string) *Store {
	return &Store{path: path}
}

// LoadAll reads the document. A missing file is an empty collection.
func (s *Store) LoadAll() ([]domain.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return doc.Zones, nil
}

// SaveAll writes zones atomically.
func (s *Store) SaveAll(zones []domain.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(document{Zones: zones})
	if err != nil {
		return fmt.Errorf("encode zones: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

// Close is a no-op; the file is only open during a load or save.
func (s *Store) Close() error { return nil }

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }
