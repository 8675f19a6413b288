package mru

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "workspace_mru.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Snapshot()) != 0 {
		t.Fatal("expected empty map for missing file")
	}
}

func TestReplacePersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workspace_mru.yaml")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.Replace(map[string]time.Time{"/home/u/a": now}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	snap := reloaded.Snapshot()
	if !snap["/home/u/a"].Equal(now) {
		t.Fatalf("reloaded last_active = %v, want %v", snap["/home/u/a"], now)
	}
}

func TestReplaceNeverRegressesLastActive(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "workspace_mru.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	later := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Replace(map[string]time.Time{"/home/u/a": later}); err != nil {
		t.Fatalf("replace cycle 1: %v", err)
	}

	// A later cycle in which the transient process signal for "a" vanished
	// must not regress its last_active, even though the new cycle's own
	// result map has an earlier (or absent) timestamp for it.
	earlier := later.Add(-time.Hour)
	if err := s.Replace(map[string]time.Time{"/home/u/a": earlier, "/home/u/b": earlier}); err != nil {
		t.Fatalf("replace cycle 2: %v", err)
	}

	snap := s.Snapshot()
	if !snap["/home/u/a"].Equal(later) {
		t.Fatalf("last_active regressed: got %v, want %v", snap["/home/u/a"], later)
	}
	if !snap["/home/u/b"].Equal(earlier) {
		t.Fatalf("new workspace b = %v, want %v", snap["/home/u/b"], earlier)
	}
}

func TestOrderedDescendingWithTieBreak(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "workspace_mru.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = s.Replace(map[string]time.Time{
		"a": base,
		"b": base.Add(time.Hour),
		// "c" absent entirely — zero-value, sorts last
	})

	order := s.Ordered([]string{"a", "b", "c"})
	want := []string{"b", "a", "c"}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestLoadInvalidYAMLQuarantines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workspace_mru.yaml")
	if err := os.WriteFile(path, []byte("not: [valid"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Snapshot()) != 0 {
		t.Fatal("expected empty map after quarantine")
	}
}

func setupRepoWithChange(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		full := append([]string{"-C", dir}, args...)
		if out, err := exec.Command("git", full...).CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	run("init", "-b", "main")
	run("config", "user.email", "test@test.com")
	run("config", "user.name", "Test User")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	run("add", ".")
	run("commit", "-m", "initial")
	return dir
}

func TestFuseSignalsProcessSignalAbsentWithoutMatchingCWD(t *testing.T) {
	dir := setupRepoWithChange(t)
	now := time.Now().Add(24 * time.Hour) // far future, so process signal (now()) would dominate if it fired
	active, ok := fuseSignals(dir, nil, now)
	if !ok {
		t.Fatal("expected a signal to fire")
	}
	if active.Equal(now) {
		t.Fatal("process signal should not have fired with no matching cwd")
	}
}

func TestFuseSignalsProcessMatchWins(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	active, ok := fuseSignals(dir, []string{dir}, now)
	if !ok || !active.Equal(now) {
		t.Fatalf("expected process signal now()=%v to win, got %v ok=%v", now, active, ok)
	}
}

func TestTrackerRunCycleSwallowsFailures(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "workspace_mru.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	nonexistent := filepath.Join(dir, "does-not-exist")
	tr := NewTracker(s, func() []string { return []string{nonexistent} })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	tr.runCycle(ctx)

	if len(s.Snapshot()) != 0 {
		t.Fatal("expected no signals for a nonexistent workspace")
	}
}
