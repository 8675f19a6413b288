// Package gitrev wraps the git operations the resolver and MRU tracker
// need. Read-only queries (current ref, status, reflog timestamps) go
// through go-git so they never shell out for state that's cheap to read
// from the repository's own object store; mutating operations (checkout,
// worktree add, clone — see mutate.go) shell to the git CLI via os/exec,
// mirroring how the teacher's internal/git package and its tests
// (git_test.go) always drive mutations through the real git binary, and
// following amauryconstant-twiggit's go-git-for-reads pairing from the
// example pack. go-git's worktree support is also known to lag the CLI's,
// which settles any doubt on the mutating side.
package gitrev

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// HeadDescriptor reports the repository's current position.
type HeadDescriptor struct {
	Branch string // empty when detached
	Hash   string
}

// Head returns the repository's current HEAD.
func Head(repoPath string) (HeadDescriptor, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return HeadDescriptor{}, fmt.Errorf("gitrev: open %s: %w", repoPath, err)
	}
	ref, err := repo.Head()
	if err != nil {
		return HeadDescriptor{}, fmt.Errorf("gitrev: head: %w", err)
	}
	d := HeadDescriptor{Hash: ref.Hash().String()}
	if ref.Name().IsBranch() {
		d.Branch = ref.Name().Short()
	}
	return d, nil
}

// ResolveRef resolves a branch, tag, or partial commit hash to a full
// commit hash.
func ResolveRef(repoPath, ref string) (string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("gitrev: open %s: %w", repoPath, err)
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return "", fmt.Errorf("gitrev: resolve %q: %w", ref, err)
	}
	return hash.String(), nil
}

// IsClean reports whether the working tree has no uncommitted changes.
func IsClean(repoPath string) (bool, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return false, fmt.Errorf("gitrev: open %s: %w", repoPath, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("gitrev: worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("gitrev: status: %w", err)
	}
	return status.IsClean(), nil
}

// ChangedFiles returns the paths git considers modified, staged, or
// untracked relative to repoPath — one of the MRU tracker's "git status
// mtimes" signal inputs (spec.md §4.3).
func ChangedFiles(repoPath string) ([]string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("gitrev: open %s: %w", repoPath, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("gitrev: worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("gitrev: status: %w", err)
	}
	files := make([]string, 0, len(status))
	for path := range status {
		files = append(files, path)
	}
	return files, nil
}

// ReflogLastActivity returns the timestamp of the most recent HEAD
// reflog entry, by reading .git/logs/HEAD directly — go-git exposes no
// reflog API, but the file is plain, stable, line-oriented git plumbing
// text ("<old> <new> <name> <email> <unix> <tz>\t<message>"), so reading
// it is still "go-git style" in spirit: no CLI shell-out for a read.
func ReflogLastActivity(repoPath string) (time.Time, error) {
	logPath := filepath.Join(repoPath, ".git", "logs", "HEAD")
	f, err := os.Open(logPath)
	if err != nil {
		return time.Time{}, fmt.Errorf("gitrev: open reflog: %w", err)
	}
	defer f.Close()

	var last time.Time
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		t, ok := parseReflogTimestamp(scanner.Text())
		if ok && t.After(last) {
			last = t
		}
	}
	if err := scanner.Err(); err != nil {
		return time.Time{}, fmt.Errorf("gitrev: scan reflog: %w", err)
	}
	if last.IsZero() {
		return time.Time{}, fmt.Errorf("gitrev: no reflog entries")
	}
	return last, nil
}

func parseReflogTimestamp(line string) (time.Time, bool) {
	tabIdx := strings.Index(line, "\t")
	header := line
	if tabIdx >= 0 {
		header = line[:tabIdx]
	}
	fields := strings.Fields(header)
	if len(fields) < 2 {
		return time.Time{}, false
	}
	// second-to-last field is the unix timestamp, last is the tz offset
	unixStr := fields[len(fields)-2]
	sec, err := strconv.ParseInt(unixStr, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}
