// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventlog

import (
	"path/filepath"
	"sync"
	"time"
)

// DefaultRoot is the directory under which per-run logs are laid out when no
// explicit event log is configured.
const DefaultRoot = "run-logs"

// PathStore remembers the event log path of every run id it has seen.
// The first resolution for a run id wins; later candidates are ignored.
type PathStore struct {
	paths sync.Map // run id -> string
}

// NewPathStore returns an empty store.
func NewPathStore() *PathStore {
	return &PathStore{}
}

// Remember records candidate for runID unless a path is already known and
// returns the path that is in effect.
func (s *PathStore) Remember(runID, candidate string) string {
	actual, _ := s.paths.LoadOrStore(runID, filepath.Clean(candidate))
	return actual.(string)
}

// Lookup returns the path recorded for runID.
func (s *PathStore) Lookup(runID string) (string, bool) {
	v, ok := s.paths.Load(runID)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Forget drops the path recorded for runID.
func (s *PathStore) Forget(runID string) {
	s.paths.Delete(runID)
}

// DefaultPath lays out <root>/<UTC YYYYMMDD>/<run_id>.jsonl.
func DefaultPath(root, runID string, now time.Time) string {
	if root == "" {
		root = DefaultRoot
	}
	return filepath.Join(root, now.UTC().Format("20060102"), runID+".jsonl")
}
