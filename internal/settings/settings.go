// Package settings implements the strongly-typed, persisted configuration
// store from spec.md §3/§4.8: concurrent reads, serialized writes, atomic
// flush to disk.
//
// The on-disk shape and the Load/Save shape are adapted from the teacher's
// internal/manifest package (.workspaces YAML with yaml.v3 tags, a
// zero-value-safe Load that tolerates a missing file); the concurrency
// envelope (RWMutex-guarded in-memory snapshot, serialized writer) is new
// — the teacher's manifest is only ever touched by one CLI invocation at a
// time, but this store backs a long-running dispatcher with concurrent
// readers.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/srcuri/srcuri-core/internal/quarantine"
)

// Workspace is one entry of the ordered workspaces list (spec.md §3).
type Workspace struct {
	Path        string `yaml:"path"`
	DisplayName string `yaml:"display_name,omitempty"`
	EditorID    string `yaml:"editor_id,omitempty"`
}

// Name returns the identifier workspaces are looked up by: DisplayName if
// set, otherwise the base name of Path.
func (w Workspace) Name() string {
	if w.DisplayName != "" {
		return w.DisplayName
	}
	return filepath.Base(w.Path)
}

// DotfreeName reports whether this workspace's effective name contains no
// dot — per spec.md §3's invariant, a dotted display_name is only
// selectable via an explicit workspace_override.
func (w Workspace) DotfreeName() bool {
	return !strings.Contains(w.Name(), ".")
}

// Data is the persisted shape of settings.yaml.
type Data struct {
	DefaultEditorID         string      `yaml:"default_editor_id,omitempty"`
	PreferredTerminal       string      `yaml:"preferred_terminal,omitempty"`
	AllowNonWorkspaceFiles  bool        `yaml:"allow_non_workspace_files"`
	RepoBaseDir             string      `yaml:"repo_base_dir,omitempty"`
	AutoSwitchCleanBranches bool        `yaml:"auto_switch_clean_branches"`
	WorktreeRoot            string      `yaml:"worktree_root,omitempty"`
	MaxWorktreesPerRepo     int         `yaml:"max_worktrees_per_repo,omitempty"`
	Workspaces              []Workspace `yaml:"workspaces,omitempty"`
}

// Defaults returns the spec-mandated defaults (spec.md §3):
// allow_non_workspace_files=false, repo_base_dir=~/code,
// auto_switch_clean_branches=true, max_worktrees_per_repo=3.
func Defaults() Data {
	home, _ := os.UserHomeDir()
	return Data{
		PreferredTerminal:       "auto",
		AllowNonWorkspaceFiles:  false,
		RepoBaseDir:             filepath.Join(home, "code"),
		AutoSwitchCleanBranches: true,
		MaxWorktreesPerRepo:     3,
	}
}

// SettingsView is the read-only accessor the editor registry receives at
// construction (spec.md §9 "Cyclic state between Editor registry and
// Settings"). The registry never gets a handle capable of writing, so
// there's no back-reference to worry about deadlocking or racing against.
type SettingsView interface {
	PreferredTerminal() string
	EditorOverrideFor(workspace string) (editorID string, ok bool)
	DefaultEditorID() string
}

// Store is the process-wide settings singleton: a multi-reader/single-writer
// guarded in-memory snapshot, flushed to disk with temp-file+rename.
type Store struct {
	path string

	mu   sync.RWMutex
	data Data

	// writeMu serializes Update calls independently of mu, so a slow
	// flush doesn't block readers any longer than the snapshot copy
	// takes (mirrors spec.md §5's "reads take a shared lock; writes
	// take an exclusive lock and flush atomically" — the exclusive
	// lock only needs to cover the in-memory swap, not the disk I/O).
	writeMu sync.Mutex
}

// Load reads settings from path, falling back to Defaults() if the file
// doesn't exist. A corrupt file is quarantined (never deleted silently,
// per spec.md §6) and the store falls back to defaults.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Store{path: path, data: Defaults()}, nil
		}
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	}

	var d Data
	if err := yaml.Unmarshal(data, &d); err != nil {
		if _, qerr := quarantine.Store(path, time.Now()); qerr != nil {
			return nil, fmt.Errorf("settings: corrupt file and quarantine failed: %w", qerr)
		}
		defaults := Defaults()
		return &Store{path: path, data: defaults}, nil
	}

	if d.MaxWorktreesPerRepo == 0 {
		d.MaxWorktreesPerRepo = 3
	}
	if d.RepoBaseDir == "" {
		home, _ := os.UserHomeDir()
		d.RepoBaseDir = filepath.Join(home, "code")
	}
	return &Store{path: path, data: d}, nil
}

// Snapshot returns a copy of the current settings; safe to call
// concurrently with Update.
func (s *Store) Snapshot() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := s.data
	cp.Workspaces = append([]Workspace(nil), s.data.Workspaces...)
	return cp
}

// Update applies fn to a copy of the current settings and persists the
// result. fn must not retain the Data it's given beyond the call.
func (s *Store) Update(fn func(*Data)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	next := s.data
	next.Workspaces = append([]Workspace(nil), s.data.Workspaces...)
	s.mu.RUnlock()

	fn(&next)

	if err := save(s.path, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
	return nil
}

// save writes data to path atomically: temp file in the same directory,
// then rename. Matches the teacher's manifest.Save except for the
// atomicity, which the teacher's single-invocation CLI doesn't need but
// a long-running dispatcher with a concurrent background tracker does.
func save(path string, data Data) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".settings-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("settings: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("settings: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("settings: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("settings: rename temp file: %w", err)
	}
	return nil
}

// FindWorkspace looks up a workspace by display name (case-insensitive,
// per spec.md §4.4), skipping dotted names unless viaOverride is
// true — dotted names are only selectable via workspace_override.
func (d *Data) FindWorkspace(name string, viaOverride bool) (Workspace, bool) {
	lower := strings.ToLower(name)
	for _, w := range d.Workspaces {
		if strings.ToLower(w.Name()) != lower {
			continue
		}
		if !w.DotfreeName() && !viaOverride {
			continue
		}
		return w, true
	}
	return Workspace{}, false
}

// view adapts Store to SettingsView without exposing write access.
type view struct{ s *Store }

func (s *Store) View() SettingsView { return view{s: s} }

func (v view) PreferredTerminal() string {
	return v.s.Snapshot().PreferredTerminal
}

func (v view) DefaultEditorID() string {
	return v.s.Snapshot().DefaultEditorID
}

func (v view) EditorOverrideFor(workspace string) (string, bool) {
	d := v.s.Snapshot()
	w, ok := d.FindWorkspace(workspace, true)
	if !ok || w.EditorID == "" {
		return "", false
	}
	return w.EditorID, true
}
