package mru

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/srcuri/srcuri-core/internal/gitrev"
)

// fsAllowlist is the spec.md §4.3 FS-fallback top-level subdirectory
// allow-list.
var fsAllowlist = []string{"src", "app", "lib", "packages", "test", "spec", "include", "bin", "scripts"}

const fsFallbackEntryCap = 400

// processSignal reports now() if any entry of procCWDs lies canonically
// inside workspaceRoot. procCWDs is injected so the caller can supply a
// process snapshot shared across a whole tracker cycle (spec.md §4.3:
// "one process-snapshot refresh per cycle is shared across all
// workspaces") instead of rescanning /proc per workspace.
func processSignal(workspaceRoot string, procCWDs []string, now time.Time) (time.Time, bool) {
	root := filepath.Clean(workspaceRoot)
	prefix := root + string(filepath.Separator)
	for _, cwd := range procCWDs {
		c := filepath.Clean(cwd)
		if c == root || strings.HasPrefix(c, prefix) {
			return now, true
		}
	}
	return time.Time{}, false
}

// snapshotProcessCWDs returns the working directory of every process
// this process can introspect. Linux-only (/proc); other platforms
// return no entries, which simply means the process-in-workspace signal
// never fires there — the other three signals still do.
func snapshotProcessCWDs() []string {
	if runtime.GOOS != "linux" {
		return nil
	}
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}

	var cwds []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue
		}
		cwd, err := os.Readlink(filepath.Join("/proc", e.Name(), "cwd"))
		if err != nil {
			continue
		}
		cwds = append(cwds, cwd)
	}
	return cwds
}

// gitReflogSignal returns the HEAD reflog's last committer time, or
// ok=false if workspaceRoot is not a repository or has no reflog yet.
func gitReflogSignal(workspaceRoot string) (time.Time, bool) {
	t, err := gitrev.ReflogLastActivity(workspaceRoot)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// gitStatusSignal returns the max mtime among files git reports as
// changed (tracked + untracked, no recursion into untracked dirs —
// go-git's status already stops at the directory boundary for
// untracked entries).
func gitStatusSignal(workspaceRoot string) (time.Time, bool) {
	files, err := gitrev.ChangedFiles(workspaceRoot)
	if err != nil || len(files) == 0 {
		return time.Time{}, false
	}

	var max time.Time
	found := false
	for _, f := range files {
		info, err := os.Stat(filepath.Join(workspaceRoot, f))
		if err != nil {
			continue
		}
		if info.ModTime().After(max) {
			max = info.ModTime()
		}
		found = true
	}
	if !found {
		return time.Time{}, false
	}
	return max, true
}

// fsFallbackSignal returns the max mtime of workspaceRoot, its
// allow-listed top-level subdirectories, and their immediate children,
// bounded by fsFallbackEntryCap entries examined across depth <= 2.
func fsFallbackSignal(workspaceRoot string) (time.Time, bool) {
	info, err := os.Stat(workspaceRoot)
	if err != nil {
		return time.Time{}, false
	}
	max := info.ModTime()
	examined := 1

	for _, sub := range fsAllowlist {
		if examined >= fsFallbackEntryCap {
			break
		}
		subPath := filepath.Join(workspaceRoot, sub)
		subInfo, err := os.Stat(subPath)
		if err != nil {
			continue
		}
		examined++
		if subInfo.ModTime().After(max) {
			max = subInfo.ModTime()
		}

		children, err := os.ReadDir(subPath)
		if err != nil {
			continue
		}
		for _, c := range children {
			if examined >= fsFallbackEntryCap {
				break
			}
			childInfo, err := c.Info()
			if err != nil {
				continue
			}
			examined++
			if childInfo.ModTime().After(max) {
				max = childInfo.ModTime()
			}
		}
	}
	return max, true
}
