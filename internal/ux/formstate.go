// Package ux persists the operator's last-entered form values so the
// interactive client reopens where they left off.
package ux

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FormState is the saved collection form: exactly what the operator
// typed, unvalidated.
type FormState struct {
	Units     string `json:"units"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// FormStore handles loading/saving the form state as JSON.
type FormStore struct {
	mu    sync.RWMutex
	path  string
	state *FormState
}

// NewFormStore creates a store rooted at the given settings directory.
func NewFormStore(dir string) *FormStore {
	return &FormStore{path: filepath.Join(dir, "formstate.json")}
}

// Load reads the saved state from disk. A missing file yields an empty
// form, not an error.
func (s *FormStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.state = &FormState{}
			return nil
		}
		return fmt.Errorf("failed to read form state: %w", err)
	}

	var state FormState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse form state: %w", err)
	}
	s.state = &state
	return nil
}

// Save persists the given state to disk.
func (s *FormStore) Save(state FormState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := json.MarshalIndent(&state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal form state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write form state: %w", err)
	}
	s.state = &state
	return nil
}

// Clear removes the saved state.
func (s *FormStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = &FormState{}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear form state: %w", err)
	}
	return nil
}

// Get returns the current state (thread-safe). Load first.
func (s *FormStore) Get() FormState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return FormState{}
	}
	return *s.state
}
