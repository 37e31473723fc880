// Package store persists per-playlist sync state between runs. State lives
// in a single JSON file keyed by playlist name, small enough to rewrite
// whole on every save.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/avdunn/tunesync/internal/models"
)

// Store reads and writes playlist sync state.
type Store struct {
	mu    sync.Mutex
	path  string
	state map[string]models.PlaylistSyncState
}

// Open loads the state file at path, creating an empty store when the file
// does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path, state: make(map[string]models.PlaylistSyncState)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	return s, nil
}

// Get returns the stored state for playlist name, if any.
func (s *Store) Get(name string) (models.PlaylistSyncState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state[name]
	return st, ok
}

// Put records state for playlist name and writes the file. The write goes
// through a temp file and rename so a crash mid-write never corrupts
// existing state.
func (s *Store) Put(name string, st models.PlaylistSyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state[name] = st
	return s.flush()
}

// Delete removes state for playlist name and writes the file.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.state, name)
	return s.flush()
}

// All returns a copy of every stored state keyed by playlist name.
func (s *Store) All() map[string]models.PlaylistSyncState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]models.PlaylistSyncState, len(s.state))
	for k, v := range s.state {
		out[k] = v
	}
	return out
}

func (s *Store) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return os.Rename(tmp, s.path)
}
