// Package pathvalidate canonicalizes candidate absolute paths and enforces
// the workspace boundary policy described in spec.md §4.2.
package pathvalidate

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Result is the outcome of validating a resolved absolute path.
type Result struct {
	Resolved string // canonical, symlink-resolved absolute path
	Outside  bool   // true if Resolved lies outside every known workspace
}

// OutsideWorkspaceError is returned when a resolved path falls outside
// every configured workspace and allow_non_workspace_files is false.
type OutsideWorkspaceError struct {
	Resolved string
}

func (e *OutsideWorkspaceError) Error() string {
	return fmt.Sprintf("path %q is outside all configured workspaces", e.Resolved)
}

// Canonicalize resolves ".", "..", and symlinks in path down to a real
// path, using realPath as the filesystem resolver (normally filepath.EvalSymlinks,
// injected so tests can substitute a fake resolver without touching the
// disk). It rejects any result whose resolved form still contains ".."
// segments — that can only happen if realPath itself misbehaves, but the
// check costs nothing and the spec calls it out explicitly.
func Canonicalize(path string, realPath func(string) (string, error)) (string, error) {
	abs := filepath.Clean(path)
	resolved, err := realPath(abs)
	if err != nil {
		// A non-existent path can't be symlink-resolved; clean it
		// lexically instead so callers can still validate boundary
		// membership before the filesystem operation that will
		// ultimately fail with NotFound.
		resolved = abs
	}
	resolved = filepath.Clean(resolved)
	for _, seg := range strings.Split(resolved, string(filepath.Separator)) {
		if seg == ".." {
			return "", fmt.Errorf("resolved path %q still contains ..", resolved)
		}
	}
	return resolved, nil
}

// IsInside reports whether resolved has workspaceRoot as a strict
// directory prefix, after lexically cleaning both (symlinks are not
// resolved here; Canonicalize does that). A path equal to the
// workspace root itself is inside; a path identical only by string
// prefix (e.g. "/home/u/sample-extra" vs workspace "/home/u/sample") is
// not.
func IsInside(resolved, workspaceRoot string) bool {
	resolved = filepath.Clean(resolved)
	workspaceRoot = filepath.Clean(workspaceRoot)
	if resolved == workspaceRoot {
		return true
	}
	prefix := workspaceRoot + string(filepath.Separator)
	return strings.HasPrefix(resolved, prefix)
}

// Validate canonicalizes candidate and checks it against the known
// workspace roots. allowOutside mirrors Settings.allow_non_workspace_files:
// when false, a path outside every workspace returns OutsideWorkspaceError;
// when true, Result.Outside is set instead so the dispatcher can request
// confirmation (spec.md §4.2).
func Validate(candidate string, workspaceRoots []string, allowOutside bool, realPath func(string) (string, error)) (Result, error) {
	resolved, err := Canonicalize(candidate, realPath)
	if err != nil {
		return Result{}, err
	}

	for _, root := range workspaceRoots {
		canonicalRoot, err := Canonicalize(root, realPath)
		if err != nil {
			continue
		}
		if IsInside(resolved, canonicalRoot) {
			return Result{Resolved: resolved, Outside: false}, nil
		}
	}

	if !allowOutside {
		return Result{}, &OutsideWorkspaceError{Resolved: resolved}
	}
	return Result{Resolved: resolved, Outside: true}, nil
}
