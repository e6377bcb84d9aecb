package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store reads and writes the state file. It does no locking of its own;
// callers hold the companion lock around any load-modify-save sequence.
type Store struct {
	path string
}

// NewStore creates a store for the state file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state file. A missing file yields the initial record
// without creating it; the file appears on disk only once Save runs.
// A file that exists but cannot be parsed is a hard error.
func (s *Store) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Initial(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse state file %s: %w", s.path, err)
	}
	return st, nil
}

// Save rewrites the whole record, creating the parent directory if needed.
func (s *Store) Save(st State) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}
