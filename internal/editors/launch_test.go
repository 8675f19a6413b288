package editors

import (
	"context"
	"testing"
	"time"
)

type fakeTerminal struct {
	spawned [][]string
	err     error
}

func (f *fakeTerminal) SpawnInTerminal(ctx context.Context, argv []string, preference string) error {
	if f.err != nil {
		return f.err
	}
	f.spawned = append(f.spawned, argv)
	return nil
}

func TestVimLaunchAppendsLineFlag(t *testing.T) {
	term := &fakeTerminal{}
	m := NewVimManager(term)
	m.cache.set("/usr/bin/vim", time.Now()) // seed cache so FindBinary doesn't hit PATH

	line := 42
	err := m.Launch(context.Background(), Target{Path: "/a/b.txt", Line: &line}, LaunchOptions{})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if len(term.spawned) != 1 {
		t.Fatalf("expected one spawn, got %d", len(term.spawned))
	}
	got := term.spawned[0]
	if got[0] != "/usr/bin/vim" || got[1] != "+42" || got[2] != "/a/b.txt" {
		t.Fatalf("spawned args = %v", got)
	}
}

func TestOtherTerminalFolderUnsupportedFailsFast(t *testing.T) {
	term := &fakeTerminal{}
	m := NewOtherTerminalManager("nano", "Nano", "nano", "+", Capabilities{SupportsFolders: false, SupportsColumn: false}, term)
	m.cache.set("/usr/bin/nano", time.Now())

	err := m.Launch(context.Background(), Target{Path: "/a/dir", IsDir: true}, LaunchOptions{})
	var ferr *FoldersUnsupportedError
	if err == nil {
		t.Fatal("expected FoldersUnsupportedError")
	}
	if !errorsAs(err, &ferr) {
		t.Fatalf("expected FoldersUnsupportedError, got %v", err)
	}
	if len(term.spawned) != 0 {
		t.Fatal("should not have spawned anything")
	}
}

func TestOtherTerminalLaunchInvalidatesCacheOnFailure(t *testing.T) {
	term := &fakeTerminal{err: errSpawnFailed}
	m := NewOtherTerminalManager("micro", "Micro", "micro", "+", Capabilities{SupportsFolders: true}, term)
	m.cache.set("/usr/bin/micro", time.Now())

	err := m.Launch(context.Background(), Target{Path: "/a/b.txt"}, LaunchOptions{})
	if err == nil {
		t.Fatal("expected launch failure to propagate")
	}
	if _, ok := m.cache.get(time.Now()); ok {
		t.Fatal("expected cache to be invalidated after launch failure")
	}
}

var errSpawnFailed = &LaunchFailedError{EditorID: "test", Reason: "spawn failed"}

// errorsAs is a tiny local shim so this file doesn't need to import
// "errors" just for one As call in a test helper.
func errorsAs(err error, target **FoldersUnsupportedError) bool {
	if e, ok := err.(*FoldersUnsupportedError); ok {
		*target = e
		return true
	}
	return false
}
