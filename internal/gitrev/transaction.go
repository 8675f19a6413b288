package gitrev

import (
	"fmt"
	"log"
)

// WithBranchRestore runs workFunc against repoPath and, if workFunc
// returns an error, attempts to restore the branch (or detached HEAD)
// that was checked out before workFunc ran. Adapted from the teacher's
// WithSkipWorktreeTransaction (internal/git/transaction.go): begin by
// capturing state, defer-restore on failure, always surface the
// original error to the caller.
func WithBranchRestore(repoPath string, workFunc func() error) error {
	before, headErr := Head(repoPath)
	if headErr != nil {
		// Nothing to restore to; just run the work.
		return workFunc()
	}

	err := workFunc()
	if err == nil {
		return nil
	}

	restoreTarget := before.Branch
	if restoreTarget == "" {
		restoreTarget = before.Hash
	}
	if restoreErr := Checkout(repoPath, restoreTarget); restoreErr != nil {
		log.Printf("gitrev: failed to restore %s to %s after error: %v", repoPath, restoreTarget, restoreErr)
	}
	return fmt.Errorf("gitrev: operation failed, restored to %s: %w", restoreTarget, err)
}
