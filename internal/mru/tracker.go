package mru

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/srcuri/srcuri-core/internal/logging"
)

const (
	cycleInterval   = 20 * time.Second
	maxCycleWorkers = 8
)

// Tracker runs the spec.md §4.3 background polling loop: every cycle
// interval it fans out one probe per workspace (bounded concurrency,
// grounded on the teacher's cmd/sync.go
// processWorkspacesParallelWithWorkers: errgroup + semaphore channel)
// and merges the freshly computed results into the Store (Store.Replace
// keeps the later of the old and new timestamp per workspace).
type Tracker struct {
	store      *Store
	workspaces func() []string
	now        func() time.Time
	log        *logging.Logger
}

// NewTracker builds a Tracker persisting into store. workspaces is
// called fresh each cycle so newly added/removed Settings workspaces
// are picked up without restarting the tracker.
func NewTracker(store *Store, workspaces func() []string) *Tracker {
	return &Tracker{store: store, workspaces: workspaces, now: time.Now, log: logging.Default("mru")}
}

// Run blocks, polling every cycleInterval until ctx is cancelled. A
// failing or slow individual workspace probe never aborts the cycle or
// the tracker — spec.md §4.3: "the tracker must never fail a cycle".
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(cycleInterval)
	defer ticker.Stop()

	t.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.runCycle(ctx)
		}
	}
}

// runCycle computes one fused last-active map and merges it into the
// store. Background MRU failures (spec.md §9) are swallowed per
// workspace, never surfaced to the caller.
func (t *Tracker) runCycle(ctx context.Context) {
	workspaces := t.workspaces()
	if len(workspaces) == 0 {
		return
	}

	now := t.now()
	procCWDs := snapshotProcessCWDs()

	var mu sync.Mutex
	results := make(map[string]time.Time, len(workspaces))
	sem := make(chan struct{}, maxCycleWorkers)

	eg, _ := errgroup.WithContext(ctx)
	for _, ws := range workspaces {
		ws := ws
		eg.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			defer func() { <-sem }()

			active, ok := fuseSignals(ws, procCWDs, now)
			if !ok {
				return nil
			}
			mu.Lock()
			results[ws] = active
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait() // probes never return errors; this only waits for completion

	if err := t.store.Replace(results); err != nil {
		t.log.Warn("failed to persist cycle: %v", err)
	}
}

// fuseSignals computes last_active = max(signals that exist) for one
// workspace, per spec.md §4.3's signal table.
func fuseSignals(workspaceRoot string, procCWDs []string, now time.Time) (time.Time, bool) {
	var max time.Time
	found := false

	consider := func(t time.Time, ok bool) {
		if !ok {
			return
		}
		found = true
		if t.After(max) {
			max = t
		}
	}

	consider(processSignal(workspaceRoot, procCWDs, now))
	consider(gitReflogSignal(workspaceRoot))
	consider(gitStatusSignal(workspaceRoot))
	consider(fsFallbackSignal(workspaceRoot))

	return max, found
}
