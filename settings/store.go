// Package settings provides a file-backed key/value store for dock plugin
// settings.
//
// Values are grouped by owner (the plugin name) and stored as a YAML document:
//
//	show-desktop:
//	  enable: true
//	  pos_show-desktop_1: 1
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/google/renameio/v2/maybe"
	"gopkg.in/yaml.v3"
)

const (
	appDir   = "show-desktop"
	fileName = "settings.yaml"
)

// DefaultPath returns the path of the settings file inside the user
// configuration directory, e.g. ~/.config/show-desktop/settings.yaml.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("default path: %w", err)
	}

	return filepath.Join(configDir, appDir, fileName), nil
}

// Store is a key/value store grouped by owner. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	path   string
	values map[string]map[string]any
}

// Open reads the settings file at path. A missing file is an empty store.
//
// If path is empty, the store lives in memory only.
func Open(path string) (*Store, error) {
	s := &Store{
		path:   path,
		values: make(map[string]map[string]any),
	}

	values, err := s.read()
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	s.values = values

	return s, nil
}

// NewMemory returns a store that is never written to disk.
func NewMemory() *Store {
	return &Store{values: make(map[string]map[string]any)}
}

// Path returns the path of the settings file, or an empty string for a
// memory store.
func (s *Store) Path() string {
	return s.path
}

// Value returns the value stored under key for owner, or def if there is no
// such value.
func (s *Store) Value(owner, key string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.values[owner]
	if !ok {
		return def
	}

	value, ok := values[key]
	if !ok {
		return def
	}

	return value
}

// SetValue stores value under key for owner and writes the file.
//
// The value is kept in memory even if writing fails.
func (s *Store) SetValue(owner, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, ok := s.values[owner]
	if !ok {
		values = make(map[string]any)
		s.values[owner] = values
	}

	values[key] = value

	if err := s.write(); err != nil {
		return fmt.Errorf("set %s/%s: %w", owner, key, err)
	}

	return nil
}

// Reload re-reads the settings file and reports whether its content differs
// from what the store held. On error the store is left unchanged.
func (s *Store) Reload() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return false, fmt.Errorf("reload: %w", err)
	}

	if reflect.DeepEqual(values, s.values) {
		return false, nil
	}

	s.values = values

	return true, nil
}

func (s *Store) read() (map[string]map[string]any, error) {
	values := make(map[string]map[string]any)

	if s.path == "" {
		return s.values, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}

	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}

	// Owners without keys decode as nil maps.
	for owner, ownerValues := range values {
		if ownerValues == nil {
			values[owner] = make(map[string]any)
		}
	}

	return values, nil
}

// write replaces the settings file atomically. Permissions of an existing
// file are kept.
func (s *Store) write() error {
	if s.path == "" {
		return nil
	}

	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	if err := maybe.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}

	return nil
}
