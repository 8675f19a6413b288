package gitrev

import (
	"fmt"
	"os/exec"
	"strings"
)

// runGit shells to the git CLI the same way the teacher's internal/git
// package does throughout git_test.go's fixtures: `git -C <dir> <args...>`.
func runGit(dir string, args ...string) (string, error) {
	full := append([]string{"-C", dir}, args...)
	cmd := exec.Command("git", full...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// Checkout switches repoPath's working tree to ref.
func Checkout(repoPath, ref string) error {
	_, err := runGit(repoPath, "checkout", ref)
	return err
}

// Fetch updates repoPath's remote-tracking refs, used before retrying a
// ref resolution that initially failed (spec.md §4.5's "unresolvable ref"
// row offers FetchAndOpen).
func Fetch(repoPath string) error {
	_, err := runGit(repoPath, "fetch", "--all")
	return err
}

// Clone clones remote into dest. If ref is non-empty, it's checked out
// after the clone completes (git clone -b only accepts branch/tag names,
// not arbitrary commit SHAs, so a SHA ref is checked out as a second
// step).
func Clone(remote, dest, ref string) error {
	if ref == "" {
		_, err := exec.Command("git", "clone", remote, dest).CombinedOutput()
		if err != nil {
			return fmt.Errorf("gitrev: clone %s: %w", remote, err)
		}
		return nil
	}

	out, err := exec.Command("git", "clone", "-b", ref, remote, dest).CombinedOutput()
	if err == nil {
		return nil
	}
	// ref wasn't a branch/tag git clone -b could take (e.g. a raw SHA);
	// fall back to a default clone followed by an explicit checkout.
	_ = out
	if _, cerr := exec.Command("git", "clone", remote, dest).CombinedOutput(); cerr != nil {
		return fmt.Errorf("gitrev: clone %s: %w", remote, cerr)
	}
	return Checkout(dest, ref)
}

// WorktreeAdd creates a new worktree at worktreePath checked out to ref.
// It first tries a branch-bound worktree ("git worktree add <path> <ref>");
// if ref is already checked out elsewhere (its own working tree, or another
// worktree), git refuses that with exit 128, so this falls back to a
// detached worktree pinned to ref's resolved commit (spec.md §4.5).
func WorktreeAdd(repoPath, worktreePath, ref string) error {
	if _, err := runGit(repoPath, "worktree", "add", worktreePath, ref); err == nil {
		return nil
	}

	sha, resolveErr := ResolveRef(repoPath, ref)
	if resolveErr != nil {
		return fmt.Errorf("gitrev: worktree add %s: resolve %q: %w", worktreePath, ref, resolveErr)
	}
	_, err := runGit(repoPath, "worktree", "add", "--detach", worktreePath, sha)
	return err
}

// WorktreeRemove removes a worktree previously created with WorktreeAdd.
// force is passed when the worktree has uncommitted changes that should
// be discarded (the LRU evictor uses this; spec.md §4.5's eviction policy
// always targets the least-recently-used entry, which the caller must
// have already confirmed is safe to discard per Settings.max_worktrees_per_repo).
func WorktreeRemove(repoPath, worktreePath string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, worktreePath)
	_, err := runGit(repoPath, args...)
	return err
}
