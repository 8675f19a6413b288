package lastseen

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "last_seen.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.RecentEditor(time.Now(), time.Hour); ok {
		t.Fatal("expected no recent editor on empty store")
	}
}

func TestTouchThenRecentEditorWithinWindow(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "last_seen.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Touch("vscode", now); err != nil {
		t.Fatalf("touch: %v", err)
	}

	id, ok := s.RecentEditor(now.Add(30*time.Second), 5*time.Minute)
	if !ok || id != "vscode" {
		t.Fatalf("recent editor = %q ok=%v", id, ok)
	}
}

func TestRecentEditorOutsideWindowIsStale(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "last_seen.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Touch("nvim", now); err != nil {
		t.Fatalf("touch: %v", err)
	}

	if _, ok := s.RecentEditor(now.Add(10*time.Minute), 5*time.Minute); ok {
		t.Fatal("expected stale touch to be ignored")
	}
}

func TestTouchPersistsAcrossLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "last_seen.yaml")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Touch("emacs", now); err != nil {
		t.Fatalf("touch: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	id, ok := reloaded.RecentEditor(now, time.Minute)
	if !ok || id != "emacs" {
		t.Fatalf("reloaded recent editor = %q ok=%v", id, ok)
	}
}

func TestLoadInvalidYAMLQuarantines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "last_seen.yaml")
	if err := os.WriteFile(path, []byte("not: [valid"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.RecentEditor(time.Now(), time.Hour); ok {
		t.Fatal("expected empty store after quarantine")
	}
	entries, err := os.ReadDir(filepath.Join(dir, "quarantine"))
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected quarantined file, err=%v entries=%v", err, entries)
	}
}
