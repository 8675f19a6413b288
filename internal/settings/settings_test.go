package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "settings.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := s.Snapshot()
	if d.MaxWorktreesPerRepo != 3 {
		t.Fatalf("max_worktrees_per_repo = %d, want 3", d.MaxWorktreesPerRepo)
	}
	if !d.AutoSwitchCleanBranches {
		t.Fatal("auto_switch_clean_branches should default true")
	}
	if d.AllowNonWorkspaceFiles {
		t.Fatal("allow_non_workspace_files should default false")
	}
	if d.RepoBaseDir == "" {
		t.Fatal("repo_base_dir should default to ~/code")
	}
}

func TestLoadReadErrorOnDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error reading a directory as a file")
	}
}

func TestLoadInvalidYAMLQuarantinesAndFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte("not: [valid: yaml"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Snapshot().MaxWorktreesPerRepo != 3 {
		t.Fatal("expected defaults after quarantine")
	}

	entries, err := os.ReadDir(filepath.Join(dir, "quarantine"))
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected quarantined file, err=%v entries=%v", err, entries)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("original corrupt file should remain at its original path")
	}
}

func TestUpdatePersistsAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	err = s.Update(func(d *Data) {
		d.DefaultEditorID = "vscode"
		d.Workspaces = append(d.Workspaces, Workspace{Path: "/home/u/proj", DisplayName: "proj"})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	d := reloaded.Snapshot()
	if d.DefaultEditorID != "vscode" {
		t.Fatalf("default_editor_id = %q", d.DefaultEditorID)
	}
	if len(d.Workspaces) != 1 || d.Workspaces[0].DisplayName != "proj" {
		t.Fatalf("workspaces = %+v", d.Workspaces)
	}
}

func TestUpdateSnapshotIsolation(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "settings.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	_ = s.Update(func(d *Data) {
		d.Workspaces = append(d.Workspaces, Workspace{Path: "/a", DisplayName: "a"})
	})

	snap := s.Snapshot()
	snap.Workspaces[0].DisplayName = "mutated"

	if s.Snapshot().Workspaces[0].DisplayName != "a" {
		t.Fatal("mutating a returned snapshot must not affect the store")
	}
}

func TestFindWorkspaceDottedNameRequiresOverride(t *testing.T) {
	d := &Data{Workspaces: []Workspace{
		{Path: "/home/u/dotted", DisplayName: "my.dotted.name"},
		{Path: "/home/u/plain", DisplayName: "plain"},
	}}

	if _, ok := d.FindWorkspace("my.dotted.name", false); ok {
		t.Fatal("dotted display_name should not resolve without workspace_override")
	}
	if w, ok := d.FindWorkspace("my.dotted.name", true); !ok || w.Path != "/home/u/dotted" {
		t.Fatalf("dotted display_name should resolve via workspace_override, got %+v ok=%v", w, ok)
	}
	if w, ok := d.FindWorkspace("PLAIN", false); !ok || w.Path != "/home/u/plain" {
		t.Fatalf("lookup should be case-insensitive, got %+v ok=%v", w, ok)
	}
}

func TestFindWorkspaceFallsBackToBaseName(t *testing.T) {
	d := &Data{Workspaces: []Workspace{{Path: "/home/u/code/myproj"}}}
	w, ok := d.FindWorkspace("myproj", false)
	if !ok || w.Path != "/home/u/code/myproj" {
		t.Fatalf("expected lookup by base name of path, got %+v ok=%v", w, ok)
	}
}

func TestSettingsViewReadOnlyAccess(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "settings.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	_ = s.Update(func(d *Data) {
		d.DefaultEditorID = "jetbrains-idea"
		d.PreferredTerminal = "iterm2"
		d.Workspaces = append(d.Workspaces, Workspace{Path: "/home/u/proj", DisplayName: "proj", EditorID: "nvim"})
	})

	view := s.View()
	if view.DefaultEditorID() != "jetbrains-idea" {
		t.Fatalf("default editor id = %q", view.DefaultEditorID())
	}
	if view.PreferredTerminal() != "iterm2" {
		t.Fatalf("preferred terminal = %q", view.PreferredTerminal())
	}
	if id, ok := view.EditorOverrideFor("proj"); !ok || id != "nvim" {
		t.Fatalf("editor override = %q ok=%v", id, ok)
	}
	if _, ok := view.EditorOverrideFor("nonexistent"); ok {
		t.Fatal("expected no override for unknown workspace")
	}
}
