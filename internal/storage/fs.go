package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
)

// Store persists crawl artifacts as JSON documents under a root directory.
// Issue logs are line-delimited JSON, append-only.
type Store struct {
	root   string
	logger arbor.ILogger
}

// NewStore creates a filesystem store rooted at dir.
func NewStore(dir string, logger arbor.ILogger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store root %s: %w", dir, err)
	}
	return &Store{root: dir, logger: logger}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// MkdirAll creates a directory (and parents) below the store root.
func (s *Store) MkdirAll(rel string) error {
	if err := os.MkdirAll(s.path(rel), 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", rel, err)
	}
	return nil
}

// WriteJSON writes a value as an indented JSON document, replacing any
// existing file.
func (s *Store) WriteJSON(rel string, value any) error {
	path := s.path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent for %s: %w", rel, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", rel, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}

	s.logger.Debug().Str("path", rel).Int("bytes", len(data)).Msg("Wrote JSON artifact")
	return nil
}

// AppendJSONLine appends a value as a single JSON line followed by a blank
// line. Used for the append-only issue logs.
func (s *Store) AppendJSONLine(rel string, value any) error {
	path := s.path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent for %s: %w", rel, err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", rel, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", rel, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n', '\n')); err != nil {
		return fmt.Errorf("append %s: %w", rel, err)
	}
	return nil
}

// ReadJSON reads a JSON document into out. Returns false with no error when
// the file does not exist.
func (s *Store) ReadJSON(rel string, out any) (bool, error) {
	data, err := os.ReadFile(s.path(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", rel, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", rel, err)
	}
	return true, nil
}

// Exists reports whether a file exists below the store root.
func (s *Store) Exists(rel string) bool {
	_, err := os.Stat(s.path(rel))
	return err == nil
}

func (s *Store) path(rel string) string {
	return filepath.Join(s.root, rel)
}
