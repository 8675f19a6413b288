// Package mru implements the background most-recently-used activity
// tracker from spec.md §4.3: a 20-second poll cycle fusing process,
// git-reflog, git-status, and filesystem signals into a per-workspace
// last-active timestamp, persisted atomically to workspace_mru.yaml.
//
// The worker-pool fan-out (tracker.go) is grounded on the teacher's
// cmd/sync.go processWorkspacesParallelWithWorkers — an errgroup plus a
// semaphore channel bounding concurrent per-workspace probes; the
// persistence shape follows the same temp-file+rename pattern as
// internal/settings and internal/lastseen.
package mru

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/srcuri/srcuri-core/internal/quarantine"
)

// Store is the persisted, concurrently-readable MRU map.
type Store struct {
	path string

	mu   sync.RWMutex
	data map[string]time.Time
}

type onDisk struct {
	Workspaces map[string]time.Time `yaml:"workspaces"`
}

// Load reads the MRU map from path. A missing or corrupt file yields an
// empty map, per spec.md §4.3's "missing/corrupt file → empty map".
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Store{path: path, data: make(map[string]time.Time)}, nil
		}
		return nil, fmt.Errorf("mru: read %s: %w", path, err)
	}

	var d onDisk
	if err := yaml.Unmarshal(raw, &d); err != nil {
		if _, qerr := quarantine.Store(path, time.Now()); qerr != nil {
			return nil, fmt.Errorf("mru: corrupt file and quarantine failed: %w", qerr)
		}
		return &Store{path: path, data: make(map[string]time.Time)}, nil
	}
	if d.Workspaces == nil {
		d.Workspaces = make(map[string]time.Time)
	}
	return &Store{path: path, data: d.Workspaces}, nil
}

// Snapshot returns a copy of the current MRU map, safe for concurrent
// use while the tracker writes the next cycle's results.
func (s *Store) Snapshot() map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]time.Time, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Replace merges a freshly computed cycle's results into the map and
// flushes it to disk. The merge takes max(old, new) per workspace so a
// transient signal that disappears in a later cycle (e.g. a process that
// briefly had the workspace as its cwd) never regresses last_active —
// spec.md §8's universal invariant that last_active is monotonically
// non-decreasing across cycles. The tracker is the map's single writer
// (spec.md §5); callers other than the tracker should not call this.
func (s *Store) Replace(next map[string]time.Time) error {
	s.mu.RLock()
	merged := make(map[string]time.Time, len(s.data)+len(next))
	for k, v := range s.data {
		merged[k] = v
	}
	s.mu.RUnlock()

	for k, v := range next {
		if cur, ok := merged[k]; !ok || v.After(cur) {
			merged[k] = v
		}
	}

	if err := save(s.path, merged); err != nil {
		return err
	}
	s.mu.Lock()
	s.data = merged
	s.mu.Unlock()
	return nil
}

// Ordered returns workspace paths sorted by descending last_active,
// ties (including entries absent from the map) broken by the order
// callers supply in tieBreak — their configured position, per
// spec.md §4.4's PartialPath resolution rule.
func (s *Store) Ordered(tieBreak []string) []string {
	snap := s.Snapshot()
	out := append([]string(nil), tieBreak...)
	sort.SliceStable(out, func(i, j int) bool {
		return snap[out[i]].After(snap[out[j]])
	})
	return out
}

func save(path string, data map[string]time.Time) error {
	out, err := yaml.Marshal(onDisk{Workspaces: data})
	if err != nil {
		return fmt.Errorf("mru: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mru: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".mru-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("mru: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("mru: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("mru: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("mru: rename temp file: %w", err)
	}
	return nil
}
