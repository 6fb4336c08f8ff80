// Package settings persists user settings in a YAML file.
package settings

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Store is a YAML-backed settings store. Every write is flushed to disk.
type Store struct {
	path string

	mu     sync.RWMutex
	values map[string]any
}

// Open loads the store at path. A missing file yields an empty store.
func Open(path string, defaults map[string]any) (*Store, error) {
	s := &Store{
		path:   path,
		values: make(map[string]any, len(defaults)),
	}
	for k, v := range defaults {
		s.values[k] = v
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		zlog.Debug().Msgf("settings: %s not found, using defaults", path)
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read settings file")
	}

	var stored map[string]any
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return nil, errors.Wrap(err, "failed to parse settings file")
	}
	for k, v := range stored {
		s.values[k] = v
	}
	return s, nil
}

// Setting returns the value stored under id.
func (s *Store) Setting(id string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[id]
	return v, ok
}

// SetSetting stores value under id and writes the store to disk.
func (s *Store) SetSetting(id string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[id]
	s.values[id] = value
	if err := s.flushLocked(); err != nil {
		if had {
			s.values[id] = prev
		} else {
			delete(s.values, id)
		}
		return err
	}
	return nil
}

func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return errors.Wrap(err, "failed to encode settings")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create settings directory")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write settings file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "failed to replace settings file")
	}
	return nil
}
