// Package lastseen tracks which editor the user most recently activated,
// so the dispatcher's editor-selection chain (spec.md §4.6) can prefer
// "whatever I was just using" over the global default editor. A
// workspace-specific editor override still takes precedence over it.
//
// Persistence shape and the atomic-write pattern are grounded on the same
// YAML-plus-rename approach as internal/settings; the package itself has
// no teacher analogue (the teacher repo has no concept of "recently used
// external tool"), so it is built from spec.md's description directly
// using the corpus's established persistence idiom.
package lastseen

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/srcuri/srcuri-core/internal/quarantine"
)

type record struct {
	EditorID string    `yaml:"editor_id"`
	At       time.Time `yaml:"at"`
}

// Store persists the single most recent editor activation to disk.
type Store struct {
	path string

	mu   sync.RWMutex
	last record
}

// Load reads the last-seen record from path. A missing or corrupt file
// yields an empty Store rather than an error — there is simply no known
// recent editor yet.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Store{path: path}, nil
		}
		return nil, fmt.Errorf("lastseen: read %s: %w", path, err)
	}

	var rec record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		if _, qerr := quarantine.Store(path, time.Now()); qerr != nil {
			return nil, fmt.Errorf("lastseen: corrupt file and quarantine failed: %w", qerr)
		}
		return &Store{path: path}, nil
	}
	return &Store{path: path, last: rec}, nil
}

// Touch records editorID as the most recently activated editor at t and
// persists the change.
func (s *Store) Touch(editorID string, t time.Time) error {
	s.mu.Lock()
	rec := record{EditorID: editorID, At: t}
	s.last = rec
	s.mu.Unlock()

	return save(s.path, rec)
}

// RecentEditor returns the editor ID touched within window of now, if
// any. An editor touched longer ago than window is treated as stale and
// ignored, per spec.md §4.6's "recently used" qualifier.
func (s *Store) RecentEditor(now time.Time, window time.Duration) (editorID string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last.EditorID == "" {
		return "", false
	}
	if now.Sub(s.last.At) > window {
		return "", false
	}
	return s.last.EditorID, true
}

func save(path string, rec record) error {
	out, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("lastseen: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("lastseen: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".lastseen-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("lastseen: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("lastseen: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("lastseen: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("lastseen: rename temp file: %w", err)
	}
	return nil
}
