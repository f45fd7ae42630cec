// Package state persists the relay's branch and last inspected run.
//
// Concurrent access is not supported. The relay is a single-process,
// single-instance service and only its polling goroutine touches the state,
// so the file is simply overwritten after every mutation. Running two relays
// against the same file means the last writer wins.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DefaultBranch is used when neither configuration nor the state file name a branch.
const DefaultBranch = "main"

// State is the small piece of relay state that survives restarts.
type State struct {
	// LastRunID is the most recent workflow run resolved by a "/logs latest"
	// lookup. Nil until the first such lookup.
	LastRunID *int64 `json:"lastRunId"`

	// DefaultBranch is the branch sent with every dispatch payload.
	DefaultBranch string `json:"defaultBranch"`
}

// New returns a fresh state for the given default branch.
func New(defaultBranch string) *State {
	if defaultBranch == "" {
		defaultBranch = DefaultBranch
	}
	return &State{DefaultBranch: defaultBranch}
}

// Load loads relay state from file.
// Returns defaults if the file doesn't exist or is corrupt. The error is
// non-nil only for unexpected read failures (e.g. permissions), and even then
// the returned state is usable.
func Load(path, defaultBranch string) (*State, error) {
	st := New(defaultBranch)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, err
	}

	var loaded State
	if err := json.Unmarshal(data, &loaded); err != nil {
		// Corrupt file - keep defaults
		return st, nil
	}

	if loaded.DefaultBranch != "" {
		st.DefaultBranch = loaded.DefaultBranch
	}
	st.LastRunID = loaded.LastRunID
	return st, nil
}

// Save writes the state to file atomically.
// Uses write-rename pattern to prevent corruption.
func Save(path string, st *State) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// SetLastRun records id as the most recently inspected run.
func (s *State) SetLastRun(id int64) {
	s.LastRunID = &id
}

// SetBranch updates the default branch. It reports whether the value changed.
func (s *State) SetBranch(branch string) bool {
	if branch == "" || branch == s.DefaultBranch {
		return false
	}
	s.DefaultBranch = branch
	return true
}
