// Package dispatcher implements spec.md §4.7: the sole orchestrator that
// turns one srcuri:// URL into a HandleResult by driving the parser,
// resolver, git revision manager, and editor registry in sequence.
package dispatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/srcuri/srcuri-core/internal/editors"
	"github.com/srcuri/srcuri-core/internal/gitrev"
	"github.com/srcuri/srcuri-core/internal/lastseen"
	"github.com/srcuri/srcuri-core/internal/logging"
	"github.com/srcuri/srcuri-core/internal/parser"
	"github.com/srcuri/srcuri-core/internal/resolver"
	"github.com/srcuri/srcuri-core/internal/settings"
)

// ResultKind discriminates HandleResult, mirroring resolver.Kind's style.
type ResultKind int

const (
	ResultOpened ResultKind = iota
	ResultShowChooser
	ResultShowRevisionDialog
	ResultShowCloneDialog
	ResultShowOutsideWorkspaceConfirm
	ResultShowMissingLocalRedirect
	ResultFlashSwitching
	ResultOpenInBrowser
	ResultCancelled
	ResultError
)

func (k ResultKind) String() string {
	switch k {
	case ResultOpened:
		return "Opened"
	case ResultShowChooser:
		return "ShowChooser"
	case ResultShowRevisionDialog:
		return "ShowRevisionDialog"
	case ResultShowCloneDialog:
		return "ShowCloneDialog"
	case ResultShowOutsideWorkspaceConfirm:
		return "ShowOutsideWorkspaceConfirm"
	case ResultShowMissingLocalRedirect:
		return "ShowMissingLocalRedirect"
	case ResultFlashSwitching:
		return "FlashSwitching"
	case ResultOpenInBrowser:
		return "OpenInBrowser"
	case ResultCancelled:
		return "Cancelled"
	default:
		return "Error"
	}
}

// RevisionDialog carries the options spec.md §4.5's decision table attaches
// to a RevisionDialog result: which terminal commands the UI may offer back.
type RevisionDialog struct {
	CanCheckout bool
	CanWorktree bool
	CanFetch    bool
	BlockReason string
}

// HandleResult is the dispatcher's discriminated return value (spec.md
// §4.7); its variants double as the UI protocol described in spec.md §6.
// Dialog variants (ShowChooser, ShowRevisionDialog, ShowCloneDialog,
// ShowOutsideWorkspaceConfirm) carry enough context for the UI collaborator
// to call back with one of spec.md §6's terminal commands (SelectCandidate,
// CheckoutAndOpen, FetchAndOpen, CreateWorktreeAndOpen, IgnoreRefAndOpen,
// ConfirmClone, ConfirmOpen, Cancel) without having to re-derive it.
type HandleResult struct {
	Kind ResultKind

	// ShowChooser
	Candidates []resolver.Candidate
	Line, Col  *int

	// ShowRevisionDialog / CheckoutAndOpen / FetchAndOpen / CreateWorktreeAndOpen
	Revision RevisionDialog
	RepoPath string
	Ref      string
	RefKind  parser.RefKind
	RelPath  string

	// ShowCloneDialog / ConfirmClone
	Remote        string
	Destination   string
	WorkspaceName string

	// ShowOutsideWorkspaceConfirm / ConfirmOpen
	Resolved string

	// ShowMissingLocalRedirect / OpenInBrowser
	WebURL string

	// FlashSwitching
	From, To string

	// Error
	ErrKind string
	Detail  string
}

// Dispatcher ties together every subsystem named in spec.md §2 behind the
// single entry point spec.md §4.7 describes.
type Dispatcher struct {
	settings  *settings.Store
	lastSeen  *lastseen.Store
	editors   *editors.Registry
	resolve   *resolver.Resolver
	worktrees *gitrev.Registry
	log       *logging.Logger

	now func() time.Time

	recencyWindow time.Duration
}

// New builds a Dispatcher from its already-constructed collaborators.
func New(store *settings.Store, ls *lastseen.Store, reg *editors.Registry, res *resolver.Resolver, worktrees *gitrev.Registry) *Dispatcher {
	return &Dispatcher{
		settings:      store,
		lastSeen:      ls,
		editors:       reg,
		resolve:       res,
		worktrees:     worktrees,
		log:           logging.Default("dispatcher"),
		now:           time.Now,
		recencyWindow: 10 * time.Minute,
	}
}

// Handle implements spec.md §4.7: parse -> resolve -> revision -> launch,
// sequentially, per URL (spec.md §5's ordering guarantee). Concurrent calls
// for different URLs are safe and independent.
func (d *Dispatcher) Handle(ctx context.Context, rawURL string) HandleResult {
	// A correlation ID ties together the parse/resolve/revision/launch log
	// lines for one activation, since spec.md §5 allows two URLs' pipelines
	// to interleave concurrently.
	corrID := uuid.NewString()
	log := d.log.With(corrID)

	req, err := parser.Parse(rawURL)
	if err != nil {
		log.Warn("malformed url %q: %v", rawURL, err)
		return HandleResult{Kind: ResultError, ErrKind: "Malformed", Detail: err.Error()}
	}

	outcome := d.resolve.Resolve(ctx, req)
	switch outcome.Kind {
	case resolver.KindUnknownWorkspace:
		return HandleResult{Kind: ResultError, ErrKind: "UnknownWorkspace", Detail: outcome.WorkspaceName}
	case resolver.KindUnmappedProvider:
		// No local mapping exists for this provider repo; the dialog
		// contract offers a clone, not an immediate failure.
		return d.cloneDialogFor(req, outcome)
	case resolver.KindOutsideWorkspace:
		// spec.md §4.2/§7/§8: a path canonicalizing outside every configured
		// workspace (e.g. ../../ escapes, or allow_non_workspace_files=false)
		// is a distinct, security-relevant outcome, never a plain NotFound.
		return HandleResult{Kind: ResultError, ErrKind: "OutsideWorkspace", Detail: outcome.Reason}
	case resolver.KindNotFound:
		return HandleResult{Kind: ResultError, ErrKind: "NotFound", Detail: outcome.Reason}
	case resolver.KindMultipleCandidates:
		return HandleResult{Kind: ResultShowChooser, Candidates: outcome.Candidates, Line: outcome.Line, Col: outcome.Col}
	}

	if outcome.Outside {
		// spec.md §4.4: files outside every workspace require an explicit
		// confirmation before the dispatcher will open them.
		return HandleResult{Kind: ResultShowOutsideWorkspaceConfirm, Resolved: outcome.AbsolutePath, Line: outcome.Line, Col: outcome.Col}
	}

	if req.GitRef != nil {
		if res, handled := d.applyRevision(ctx, &outcome, req); handled {
			return res
		}
	}

	return d.launch(ctx, outcome)
}

// cloneDialogFor builds the ShowCloneDialog result for a provider URL with
// no locally mapped workspace (spec.md §4.7's HandleResult variant list).
func (d *Dispatcher) cloneDialogFor(req *parser.Request, outcome resolver.Outcome) HandleResult {
	data := d.settings.Snapshot()
	dest := data.RepoBaseDir
	if dest != "" {
		dest = dest + "/" + lastPathSegment(outcome.OwnerRepoPath)
	}
	ref := ""
	if req.GitRef != nil {
		ref = req.GitRef.Value
	}
	return HandleResult{
		Kind:          ResultShowCloneDialog,
		Remote:        "https://" + outcome.ProviderHost + "/" + outcome.OwnerRepoPath,
		Destination:   dest,
		WorkspaceName: lastPathSegment(outcome.OwnerRepoPath),
		Ref:           ref,
		RelPath:       req.FilePath,
		Line:          req.Line,
		Col:           req.Col,
	}
}

func lastPathSegment(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}

// applyRevision implements spec.md §4.5's decision table. handled is false
// when the path lies in no configured workspace, when the ref is the
// current branch, or when an existing worktree for the ref was found (the
// outcome's path is then rebased into it); in those cases the caller
// proceeds straight to launch. A workspace that is not a git repo yields
// a NotARepo error with handled set.
func (d *Dispatcher) applyRevision(ctx context.Context, outcome *resolver.Outcome, req *parser.Request) (HandleResult, bool) {
	repoPath := workspaceRootOf(outcome.AbsolutePath, d.settings.Snapshot())
	if repoPath == "" {
		return HandleResult{}, false
	}

	head, err := gitrev.Head(repoPath)
	if err != nil {
		// Non-git workspace with a git_ref attached to the request.
		return HandleResult{Kind: ResultError, ErrKind: "NotARepo", Detail: repoPath}, true
	}

	ref := req.GitRef.Value
	if head.Branch == ref {
		return HandleResult{}, false
	}

	relPath, relErr := filepath.Rel(repoPath, outcome.AbsolutePath)
	if relErr != nil {
		relPath = ""
	}

	if wt, ok := d.worktrees.Lookup(repoPath, ref); ok {
		// Resolve inside the existing worktree's checkout rather than the
		// main one (spec.md §4.5: "existing worktree for ref -> resolve
		// there"); rebase the relative path under its root.
		if relErr == nil {
			outcome.AbsolutePath = filepath.Join(wt, relPath)
		}
		return HandleResult{}, false
	}

	if _, resolveErr := gitrev.ResolveRef(repoPath, ref); resolveErr != nil {
		return HandleResult{
			Kind: ResultShowRevisionDialog, Revision: RevisionDialog{CanFetch: true},
			RepoPath: repoPath, Ref: ref, RefKind: req.GitRef.Kind, RelPath: relPath, Line: outcome.Line, Col: outcome.Col,
		}, true
	}

	return d.decideCleanliness(repoPath, ref, req.GitRef.Kind, head, relPath, outcome.Line, outcome.Col), true
}

// decideCleanliness implements the remainder of spec.md §4.5's decision
// table once a ref has been confirmed to resolve: dirty trees block an
// in-place checkout (worktree only), clean branches auto-switch when
// Settings allows it, and everything else falls to a dialog offering both
// CheckoutAndOpen and CreateWorktreeAndOpen. Shared between applyRevision's
// first pass and FetchAndOpen's retry after a successful fetch.
func (d *Dispatcher) decideCleanliness(repoPath, ref string, refKind parser.RefKind, head gitrev.HeadDescriptor, relPath string, line, col *int) HandleResult {
	clean, err := gitrev.IsClean(repoPath)
	if err != nil {
		return HandleResult{Kind: ResultError, ErrKind: "NotARepo", Detail: repoPath}
	}

	if !clean {
		return HandleResult{
			Kind: ResultShowRevisionDialog, Revision: RevisionDialog{CanCheckout: false, CanWorktree: true, BlockReason: "dirty"},
			RepoPath: repoPath, Ref: ref, RefKind: refKind, RelPath: relPath, Line: line, Col: col,
		}
	}

	data := d.settings.Snapshot()
	if refKind == parser.RefBranch && data.AutoSwitchCleanBranches {
		if err := gitrev.Checkout(repoPath, ref); err != nil {
			return HandleResult{Kind: ResultError, ErrKind: "WorktreeFailed", Detail: err.Error()}
		}
		return HandleResult{Kind: ResultFlashSwitching, From: head.Branch, To: ref}
	}

	return HandleResult{
		Kind: ResultShowRevisionDialog, Revision: RevisionDialog{CanCheckout: true, CanWorktree: true},
		RepoPath: repoPath, Ref: ref, RefKind: refKind, RelPath: relPath, Line: line, Col: col,
	}
}

// workspaceRootOf finds which configured workspace (if any) contains path,
// returning its root. Used to find the repository a git_ref applies to.
func workspaceRootOf(path string, data settings.Data) string {
	best := ""
	for _, ws := range data.Workspaces {
		if len(ws.Path) > len(best) && hasPathPrefix(path, ws.Path) {
			best = ws.Path
		}
	}
	return best
}

func hasPathPrefix(path, prefix string) bool {
	if len(path) < len(prefix) {
		return false
	}
	if path[:len(prefix)] != prefix {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// launch implements the editor-selection chain (spec.md §4.7 steps 2-5)
// and dispatches to the chosen Manager.
func (d *Dispatcher) launch(ctx context.Context, outcome resolver.Outcome) HandleResult {
	view := d.settings.View()
	workspaceOverride, _ := view.EditorOverrideFor(workspaceNameFor(outcome.AbsolutePath, d.settings.Snapshot()))
	recentEditor, _ := d.lastSeen.RecentEditor(d.now(), d.recencyWindow)

	editorID, ok := d.editors.Select(ctx, workspaceOverride, recentEditor, view.DefaultEditorID())
	if !ok {
		return HandleResult{Kind: ResultError, ErrKind: "NoEditorAvailable", Detail: "no configured editor could be found on this machine"}
	}

	mgr, _ := d.editors.Get(editorID)
	target := editors.Target{Path: outcome.AbsolutePath, Line: outcome.Line, Col: outcome.Col}
	if err := mgr.Launch(ctx, target, editors.LaunchOptions{TerminalPreference: view.PreferredTerminal()}); err != nil {
		return HandleResult{Kind: ResultError, ErrKind: "LaunchFailed", Detail: fmt.Sprintf("%v", err)}
	}

	if err := d.lastSeen.Touch(editorID, d.now()); err != nil {
		d.log.Warn("failed to persist last-seen editor %s: %v", editorID, err)
	}

	return HandleResult{Kind: ResultOpened}
}

func workspaceNameFor(path string, data settings.Data) string {
	root := workspaceRootOf(path, data)
	for _, ws := range data.Workspaces {
		if ws.Path == root {
			return ws.Name()
		}
	}
	return ""
}

// The methods below implement spec.md §6's eight terminal commands: every
// dialog HandleResult variant eventually calls back into one of these to
// complete the activation the initial Handle call paused on.

// SelectCandidate completes a ShowChooser dialog by launching the
// candidate at index.
func (d *Dispatcher) SelectCandidate(ctx context.Context, candidates []resolver.Candidate, index int, line, col *int) HandleResult {
	if index < 0 || index >= len(candidates) {
		return HandleResult{Kind: ResultError, ErrKind: "InvalidSelection", Detail: fmt.Sprintf("index %d out of range", index)}
	}
	return d.launch(ctx, resolver.Outcome{Kind: resolver.KindResolved, AbsolutePath: candidates[index].AbsolutePath, Line: line, Col: col})
}

// ConfirmOpen completes a ShowOutsideWorkspaceConfirm dialog by launching
// the already-resolved out-of-workspace path.
func (d *Dispatcher) ConfirmOpen(ctx context.Context, resolved string, line, col *int) HandleResult {
	return d.launch(ctx, resolver.Outcome{Kind: resolver.KindResolved, AbsolutePath: resolved, Line: line, Col: col})
}

// Cancel acknowledges any dialog without taking further action.
func (d *Dispatcher) Cancel() HandleResult {
	return HandleResult{Kind: ResultCancelled}
}

// CheckoutAndOpen completes a ShowRevisionDialog with CanCheckout set: it
// checks repoPath out to ref in place, then opens relPath from the
// switched-to tree (spec.md §4.5's clean-tree checkout path).
func (d *Dispatcher) CheckoutAndOpen(ctx context.Context, repoPath, ref, relPath string, line, col *int) HandleResult {
	if err := gitrev.Checkout(repoPath, ref); err != nil {
		return HandleResult{Kind: ResultError, ErrKind: "WorktreeFailed", Detail: err.Error()}
	}
	return d.launch(ctx, resolver.Outcome{Kind: resolver.KindResolved, AbsolutePath: filepath.Join(repoPath, relPath), Line: line, Col: col})
}

// CreateWorktreeAndOpen completes a ShowRevisionDialog with CanWorktree
// set (the dirty-tree row and the explicit worktree choice on a clean
// tree): it acquires (or reuses) a worktree for ref via the worktree
// registry and opens relPath from there.
func (d *Dispatcher) CreateWorktreeAndOpen(ctx context.Context, repoPath, ref, relPath string, line, col *int) HandleResult {
	wt, err := d.worktrees.Acquire(repoPath, ref, d.now())
	if err != nil {
		return HandleResult{Kind: ResultError, ErrKind: "WorktreeFailed", Detail: err.Error()}
	}
	return d.launch(ctx, resolver.Outcome{Kind: resolver.KindResolved, AbsolutePath: filepath.Join(wt, relPath), Line: line, Col: col})
}

// FetchAndOpen completes a ShowRevisionDialog with CanFetch set (the
// unresolvable-ref row): it fetches repoPath's remotes, retries resolving
// ref, and if that now succeeds, proceeds through the same
// clean/dirty/auto-switch decision CheckoutAndOpen's dialog path does.
func (d *Dispatcher) FetchAndOpen(ctx context.Context, repoPath, ref, relPath string, refKind parser.RefKind, line, col *int) HandleResult {
	if err := gitrev.Fetch(repoPath); err != nil {
		return HandleResult{Kind: ResultError, ErrKind: "FetchFailed", Detail: err.Error()}
	}
	if _, err := gitrev.ResolveRef(repoPath, ref); err != nil {
		return HandleResult{
			Kind: ResultShowRevisionDialog, Revision: RevisionDialog{CanFetch: true},
			RepoPath: repoPath, Ref: ref, RefKind: refKind, RelPath: relPath, Line: line, Col: col,
		}
	}
	head, err := gitrev.Head(repoPath)
	if err != nil {
		return HandleResult{Kind: ResultError, ErrKind: "NotARepo", Detail: repoPath}
	}
	return d.decideCleanliness(repoPath, ref, refKind, head, relPath, line, col)
}

// IgnoreRefAndOpen completes any revision dialog by opening relPath from
// repoPath's current checkout, disregarding the request's git_ref entirely.
func (d *Dispatcher) IgnoreRefAndOpen(ctx context.Context, repoPath, relPath string, line, col *int) HandleResult {
	return d.launch(ctx, resolver.Outcome{Kind: resolver.KindResolved, AbsolutePath: filepath.Join(repoPath, relPath), Line: line, Col: col})
}

// ConfirmClone completes a ShowCloneDialog: it clones remote to
// destination (optionally at ref), registers the clone as a new workspace
// named workspaceName, and opens relPath from it (spec.md §8 scenario 5).
func (d *Dispatcher) ConfirmClone(ctx context.Context, remote, destination, workspaceName, ref, relPath string, line, col *int) HandleResult {
	if err := gitrev.Clone(remote, destination, ref); err != nil {
		return HandleResult{Kind: ResultError, ErrKind: "CloneFailed", Detail: err.Error()}
	}

	if err := d.settings.Update(func(data *settings.Data) {
		data.Workspaces = append(data.Workspaces, settings.Workspace{Path: destination, DisplayName: workspaceName})
	}); err != nil {
		d.log.Warn("failed to persist new workspace %s after clone: %v", workspaceName, err)
	}

	return d.launch(ctx, resolver.Outcome{Kind: resolver.KindResolved, AbsolutePath: filepath.Join(destination, relPath), Line: line, Col: col})
}
