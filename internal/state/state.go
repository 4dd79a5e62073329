// Package state persists the build state file that the planner compares
// against to decide what is stale (§4.3, §6). It is scoped to a single
// path supplied at construction, grounded on the teacher's atomic
// write-then-rename cache (internal/registry/cache.go).
package state

import (
	"encoding/json"
	"os"

	"github.com/aidanmoss/forgeflow/internal/generator"
	workflowerrors "github.com/aidanmoss/forgeflow/pkg/errors"
)

// Entry is the persisted record for one output path: the three hashes
// computed at the time it was last built, and its mtime at that time.
type Entry struct {
	Hashes generator.Hashes `json:"hashes"`
	Mtime  float64          `json:"mtime"`
}

// Map is the full persisted state: output path to Entry.
type Map map[string]Entry

// Store owns a single state file path.
type Store struct {
	path string
}

// New returns a Store scoped to path.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the state file. A missing or malformed file is treated as
// empty, forcing a full rebuild rather than surfacing an error (§6).
func (s *Store) Load() Map {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Map{}
	}

	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return Map{}
	}
	if m == nil {
		m = Map{}
	}
	return m
}

// Save writes the state file as pretty-printed, 2-space-indent JSON,
// atomically (write to a temp file, then rename). Write failure is
// surfaced as a StateError (§4.3).
func (s *Store) Save(m Map) error {
	if m == nil {
		m = Map{}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return workflowerrors.NewStateError(s.path, "marshal state", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return workflowerrors.NewStateError(s.path, "write temporary state file", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return workflowerrors.NewStateError(s.path, "rename temporary state file", err)
	}

	return nil
}
