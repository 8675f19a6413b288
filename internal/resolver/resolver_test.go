package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/srcuri/srcuri-core/internal/parser"
	"github.com/srcuri/srcuri-core/internal/settings"
)

func identityRealPath(p string) (string, error) { return p, nil }

type fakeMRU struct{ order []string }

func (f fakeMRU) Ordered(tieBreak []string) []string {
	if f.order != nil {
		return f.order
	}
	return tieBreak
}

func newTestStore(t *testing.T, data settings.Data) *settings.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := settings.Load(filepath.Join(dir, "settings.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := store.Update(func(d *settings.Data) { *d = data }); err != nil {
		t.Fatalf("update: %v", err)
	}
	return store
}

func TestResolveWorkspacePathFound(t *testing.T) {
	wsDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(wsDir, "main.rs"), []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	store := newTestStore(t, settings.Data{Workspaces: []settings.Workspace{{Path: wsDir, DisplayName: "myproj"}}})
	r := New(store, fakeMRU{}, identityRealPath)

	req := &parser.Request{Kind: parser.KindWorkspacePath, Workspace: "myproj", Path: "main.rs"}
	out := r.Resolve(context.Background(), req)
	if out.Kind != KindResolved {
		t.Fatalf("kind = %v, reason = %q", out.Kind, out.Reason)
	}
	if out.AbsolutePath != filepath.Join(wsDir, "main.rs") {
		t.Fatalf("resolved = %q", out.AbsolutePath)
	}
}

func TestResolveWorkspacePathUnknownWorkspace(t *testing.T) {
	store := newTestStore(t, settings.Data{})
	r := New(store, fakeMRU{}, identityRealPath)

	out := r.Resolve(context.Background(), &parser.Request{Kind: parser.KindWorkspacePath, Workspace: "nope", Path: "x"})
	if out.Kind != KindUnknownWorkspace || out.WorkspaceName != "nope" {
		t.Fatalf("out = %+v", out)
	}
}

func TestResolvePartialPathSingleMatch(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	if err := os.WriteFile(filepath.Join(b, "README.md"), []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	store := newTestStore(t, settings.Data{Workspaces: []settings.Workspace{
		{Path: a, DisplayName: "a"}, {Path: b, DisplayName: "b"},
	}})
	r := New(store, fakeMRU{order: []string{b, a}}, identityRealPath)

	out := r.Resolve(context.Background(), &parser.Request{Kind: parser.KindPartialPath, Path: "README.md"})
	if out.Kind != KindResolved {
		t.Fatalf("kind = %v reason=%q", out.Kind, out.Reason)
	}
	if out.AbsolutePath != filepath.Join(b, "README.md") {
		t.Fatalf("resolved = %q", out.AbsolutePath)
	}
}

func TestResolvePartialPathMultipleCandidates(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	for _, dir := range []string{a, b} {
		if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	store := newTestStore(t, settings.Data{Workspaces: []settings.Workspace{
		{Path: a, DisplayName: "a"}, {Path: b, DisplayName: "b"},
	}})
	r := New(store, fakeMRU{order: []string{b, a}}, identityRealPath)

	out := r.Resolve(context.Background(), &parser.Request{Kind: parser.KindPartialPath, Path: "README.md"})
	if out.Kind != KindMultipleCandidates {
		t.Fatalf("kind = %v", out.Kind)
	}
	if len(out.Candidates) != 2 {
		t.Fatalf("candidates = %+v", out.Candidates)
	}
	// MRU order b > a must be preserved.
	if out.Candidates[0].Workspace != "b" {
		t.Fatalf("first candidate = %+v, want workspace b first per MRU order", out.Candidates[0])
	}
}

func TestResolvePartialPathNoMatches(t *testing.T) {
	a := t.TempDir()
	store := newTestStore(t, settings.Data{Workspaces: []settings.Workspace{{Path: a, DisplayName: "a"}}})
	r := New(store, fakeMRU{}, identityRealPath)

	out := r.Resolve(context.Background(), &parser.Request{Kind: parser.KindPartialPath, Path: "nonexistent.txt"})
	if out.Kind != KindNotFound {
		t.Fatalf("kind = %v", out.Kind)
	}
}

func TestResolveFullPathOutsideWorkspaceRejected(t *testing.T) {
	a := t.TempDir()
	store := newTestStore(t, settings.Data{AllowNonWorkspaceFiles: false, Workspaces: []settings.Workspace{{Path: a, DisplayName: "a"}}})
	r := New(store, fakeMRU{}, identityRealPath)

	out := r.Resolve(context.Background(), &parser.Request{Kind: parser.KindFullPath, AbsolutePath: "/etc/hosts"})
	if out.Kind != KindOutsideWorkspace {
		t.Fatalf("kind = %v, want OutsideWorkspace for outside-workspace rejection", out.Kind)
	}
}

func TestResolveFullPathOutsideWorkspaceAllowed(t *testing.T) {
	a := t.TempDir()
	store := newTestStore(t, settings.Data{AllowNonWorkspaceFiles: true, Workspaces: []settings.Workspace{{Path: a, DisplayName: "a"}}})
	r := New(store, fakeMRU{}, identityRealPath)

	out := r.Resolve(context.Background(), &parser.Request{Kind: parser.KindFullPath, AbsolutePath: "/etc/hosts"})
	if out.Kind != KindResolved || !out.Outside {
		t.Fatalf("out = %+v", out)
	}
}

func TestResolvePartialPathWorkspaceOverrideTakesPrecedenceOverHint(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	for _, dir := range []string{a, b} {
		if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	store := newTestStore(t, settings.Data{Workspaces: []settings.Workspace{
		{Path: a, DisplayName: "a"}, {Path: b, DisplayName: "b"},
	}})
	r := New(store, fakeMRU{}, identityRealPath)

	out := r.Resolve(context.Background(), &parser.Request{
		Kind: parser.KindPartialPath, Path: "README.md", WorkspaceHint: "a", WorkspaceOverride: "b",
	})
	if out.Kind != KindResolved {
		t.Fatalf("kind = %v reason=%q", out.Kind, out.Reason)
	}
	if out.AbsolutePath != filepath.Join(b, "README.md") {
		t.Fatalf("resolved = %q, want override workspace b to win over hint a", out.AbsolutePath)
	}
}

func TestResolveProviderPassthroughUnmapped(t *testing.T) {
	store := newTestStore(t, settings.Data{})
	r := New(store, fakeMRU{}, identityRealPath)

	out := r.Resolve(context.Background(), &parser.Request{
		Kind: parser.KindProviderPassthrough, ProviderHost: "github.com", OwnerRepoPath: "owner/repo",
	})
	if out.Kind != KindUnmappedProvider {
		t.Fatalf("kind = %v", out.Kind)
	}
	if out.OwnerRepoPath != "owner/repo" {
		t.Fatalf("owner repo = %q", out.OwnerRepoPath)
	}
}

func TestResolveProviderPassthroughMatchesByRepoName(t *testing.T) {
	ws := t.TempDir()
	if err := os.WriteFile(filepath.Join(ws, "file.rs"), []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	store := newTestStore(t, settings.Data{Workspaces: []settings.Workspace{{Path: ws, DisplayName: "repo"}}})
	r := New(store, fakeMRU{}, identityRealPath)

	out := r.Resolve(context.Background(), &parser.Request{
		Kind: parser.KindProviderPassthrough, ProviderHost: "github.com", OwnerRepoPath: "owner/repo",
		FilePath: "file.rs", Fragment: "L42",
	})
	if out.Kind != KindResolved {
		t.Fatalf("kind = %v reason=%q", out.Kind, out.Reason)
	}
	if out.Line == nil || *out.Line != 42 {
		t.Fatalf("line = %v", out.Line)
	}
}

func TestResolveProviderPassthroughWorkspaceOverrideWins(t *testing.T) {
	wsA := t.TempDir()
	wsB := t.TempDir()
	if err := os.WriteFile(filepath.Join(wsB, "file.rs"), []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	store := newTestStore(t, settings.Data{Workspaces: []settings.Workspace{
		{Path: wsA, DisplayName: "repo"},
		{Path: wsB, DisplayName: "my.override"},
	}})
	r := New(store, fakeMRU{}, identityRealPath)

	out := r.Resolve(context.Background(), &parser.Request{
		Kind: parser.KindProviderPassthrough, ProviderHost: "github.com", OwnerRepoPath: "owner/repo",
		FilePath: "file.rs", WorkspaceOverride: "my.override",
	})
	if out.Kind != KindResolved {
		t.Fatalf("kind = %v reason=%q", out.Kind, out.Reason)
	}
	if out.AbsolutePath != filepath.Join(wsB, "file.rs") {
		t.Fatalf("resolved = %q, want override workspace to win", out.AbsolutePath)
	}
}
