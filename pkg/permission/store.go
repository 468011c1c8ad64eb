package permission

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const storeKey = "cameraPermission"

// Store persists the consent outcome across sessions as an advisory
// hint. It is never authoritative; see Reconcile.
type Store struct {
	path string
}

// NewStore returns a store backed by the user's config directory.
func NewStore() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return NewStoreAt(filepath.Join(dir, "cameye", "permission.json")), nil
}

// NewStoreAt returns a store backed by the given file path.
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted hint. ok is false when no valid hint exists;
// a missing or corrupt file is not an error.
func (s *Store) Load() (state State, ok bool) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return StatePrompt, false
	}

	var entries map[string]State
	if err := json.Unmarshal(raw, &entries); err != nil {
		return StatePrompt, false
	}

	state = entries[storeKey]
	if !state.Valid() || state == StatePrompt {
		return StatePrompt, false
	}
	return state, true
}

// Save writes the hint. Only granted and denied are persisted; prompt
// clears the entry.
func (s *Store) Save(state State) error {
	if state == StatePrompt {
		err := os.Remove(s.path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	raw, err := json.Marshal(map[string]State{storeKey: state})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o644)
}
