package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// A tiny string key/value file, the terminal stand-in for browser local
// storage. One JSON object, rewritten whole on every change.

const dataFileName = "storage.json"

// Store is a key/value file rooted at Path.
type Store struct {
	Path string

	mu sync.Mutex
}

// New returns a store backed by dir/storage.json.
func New(dir string) *Store {
	return &Store{Path: filepath.Join(dir, dataFileName)}
}

// DefaultDir is ~/.flashtask.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".flashtask"), nil
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	m[key] = value
	return s.save(m)
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.save(m)
}

func (s *Store) load() (map[string]string, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	m := map[string]string{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	// a literal null decodes to a nil map
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

func (s *Store) save(m map[string]string) error {
	// owner-only: the file holds the connected address
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.WriteFile(s.Path, b, 0o600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
