package gitrev

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"
)

// WorktreeEntry is one managed worktree under Settings.worktree_root.
type WorktreeEntry struct {
	RepoPath     string
	WorktreePath string
	Ref          string
	LastUsed     time.Time
}

// Registry tracks worktrees created for any git ref (branch, tag, or
// commit) that is opened without switching the main checkout, and evicts
// the least-recently-used entry once a repository's worktree count would
// exceed Settings.max_worktrees_per_repo.
type Registry struct {
	root    string
	maxPer  int
	locks   *keyedMutex
	mu      sync.Mutex
	entries map[string][]*WorktreeEntry // keyed by RepoPath
}

// NewRegistry returns a Registry rooted at root, evicting beyond maxPer
// worktrees per repository.
func NewRegistry(root string, maxPer int) *Registry {
	if maxPer <= 0 {
		maxPer = 3
	}
	return &Registry{root: root, maxPer: maxPer, locks: newKeyedMutex(), entries: make(map[string][]*WorktreeEntry)}
}

// Acquire returns the worktree path for ref under repoPath, creating it
// (and evicting the LRU entry if over budget) if it doesn't already
// exist. Mutating access to a single repository's worktree set is
// serialized via the registry's keyed lock.
func (r *Registry) Acquire(repoPath, ref string, now time.Time) (string, error) {
	unlock := r.locks.Lock(repoPath)
	defer unlock()

	r.mu.Lock()
	existing := r.entries[repoPath]
	for _, e := range existing {
		if e.Ref == ref {
			e.LastUsed = now
			r.mu.Unlock()
			return e.WorktreePath, nil
		}
	}
	r.mu.Unlock()

	if err := r.evictIfNeeded(repoPath); err != nil {
		return "", err
	}

	wtPath := filepath.Join(r.root, worktreeDirName(repoPath, ref))
	if err := WorktreeAdd(repoPath, wtPath, ref); err != nil {
		return "", fmt.Errorf("gitrev: acquire worktree for %s@%s: %w", repoPath, ref, err)
	}

	r.mu.Lock()
	r.entries[repoPath] = append(r.entries[repoPath], &WorktreeEntry{
		RepoPath: repoPath, WorktreePath: wtPath, Ref: ref, LastUsed: now,
	})
	r.mu.Unlock()
	return wtPath, nil
}

// Lookup returns the worktree path already registered for (repoPath, ref),
// without creating one. Used by the dispatcher's decision table to tell
// "existing worktree for ref" apart from "needs a new worktree".
func (r *Registry) Lookup(repoPath, ref string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries[repoPath] {
		if e.Ref == ref {
			return e.WorktreePath, true
		}
	}
	return "", false
}

func (r *Registry) evictIfNeeded(repoPath string) error {
	r.mu.Lock()
	entries := r.entries[repoPath]
	if len(entries) < r.maxPer {
		r.mu.Unlock()
		return nil
	}

	oldestIdx := 0
	for i, e := range entries {
		if e.LastUsed.Before(entries[oldestIdx].LastUsed) {
			oldestIdx = i
		}
	}
	victim := entries[oldestIdx]
	remaining := append(entries[:oldestIdx:oldestIdx], entries[oldestIdx+1:]...)
	r.entries[repoPath] = remaining
	r.mu.Unlock()

	return WorktreeRemove(victim.RepoPath, victim.WorktreePath, true)
}

// worktreeDirName derives a filesystem-safe directory name for a
// repo+ref pair, keyed by the repository's base name so sibling repos
// with the same ref name don't collide.
func worktreeDirName(repoPath, ref string) string {
	safeRef := sanitizeComponent(ref)
	return fmt.Sprintf("%s-%s", filepath.Base(repoPath), safeRef)
}

func sanitizeComponent(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
