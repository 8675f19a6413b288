// Package resolver implements spec.md §4.4: turning a parsed Request,
// Settings' workspace list, and the MRU tracker's ordering into a
// concrete filesystem location (or a caller-facing ambiguity/failure).
package resolver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/srcuri/srcuri-core/internal/parser"
	"github.com/srcuri/srcuri-core/internal/pathvalidate"
	"github.com/srcuri/srcuri-core/internal/provider"
	"github.com/srcuri/srcuri-core/internal/settings"
)

// Kind discriminates an Outcome, mirroring parser.Kind's style.
type Kind int

const (
	KindResolved Kind = iota
	KindMultipleCandidates
	KindUnknownWorkspace
	KindUnmappedProvider
	KindOutsideWorkspace
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindResolved:
		return "Resolved"
	case KindMultipleCandidates:
		return "MultipleCandidates"
	case KindUnknownWorkspace:
		return "UnknownWorkspace"
	case KindUnmappedProvider:
		return "UnmappedProvider"
	case KindOutsideWorkspace:
		return "OutsideWorkspace"
	default:
		return "NotFound"
	}
}

// Candidate is one match returned under MultipleCandidates.
type Candidate struct {
	AbsolutePath string
	Workspace    string
}

// Outcome is the resolver's discriminated result.
type Outcome struct {
	Kind Kind

	// KindResolved
	AbsolutePath string
	EditorHint   string
	Outside      bool

	// KindMultipleCandidates
	Candidates []Candidate

	Line, Col *int

	// KindUnknownWorkspace
	WorkspaceName string
	Remote        string

	// KindUnmappedProvider
	ProviderHost  string
	OwnerRepoPath string

	// KindNotFound
	Reason string
}

// MRUSource supplies workspace ordering for PartialPath resolution.
type MRUSource interface {
	Ordered(tieBreak []string) []string
}

// Resolver ties together Settings, the MRU tracker, path validation,
// and provider lookups to satisfy requests from the parser.
type Resolver struct {
	settings *settings.Store
	mruSrc   MRUSource
	realPath func(string) (string, error)
	fsSearch fsSearcher
}

// fsSearcher abstracts the PartialPath suffix search so tests can
// substitute an in-memory filesystem.
type fsSearcher interface {
	// FindSuffixMatch returns the first file under root whose
	// relative path has suffix as a segment-boundary suffix, or ""
	// if none is found. Resolver stops scanning a workspace on its
	// first match, per spec.md §4.4.
	FindSuffixMatch(root, suffix string) (string, bool)
}

// New builds a Resolver. realPath is normally filepath.EvalSymlinks,
// injected for pathvalidate's testability contract.
func New(store *settings.Store, mruSrc MRUSource, realPath func(string) (string, error)) *Resolver {
	return &Resolver{settings: store, mruSrc: mruSrc, realPath: realPath, fsSearch: osSearcher{}}
}

// Resolve implements spec.md §4.4's four branches.
func (r *Resolver) Resolve(ctx context.Context, req *parser.Request) Outcome {
	data := r.settings.Snapshot()

	switch req.Kind {
	case parser.KindWorkspacePath:
		return r.resolveWorkspacePath(data, req)
	case parser.KindPartialPath:
		return r.resolvePartialPath(data, req)
	case parser.KindFullPath:
		return r.resolveFullPath(data, req)
	case parser.KindProviderPassthrough:
		return r.resolveProviderPassthrough(ctx, data, req)
	default:
		return Outcome{Kind: KindNotFound, Reason: "unrecognized request kind"}
	}
}

func (r *Resolver) resolveWorkspacePath(data settings.Data, req *parser.Request) Outcome {
	ws, ok := data.FindWorkspace(req.Workspace, req.WorkspaceOverride != "")
	if !ok {
		return Outcome{Kind: KindUnknownWorkspace, WorkspaceName: req.Workspace}
	}

	candidate := filepath.Join(ws.Path, req.Path)
	res, err := pathvalidate.Validate(candidate, []string{ws.Path}, data.AllowNonWorkspaceFiles, r.realPath)
	if err != nil {
		var outside *pathvalidate.OutsideWorkspaceError
		if errors.As(err, &outside) {
			return Outcome{Kind: KindOutsideWorkspace, AbsolutePath: outside.Resolved, Reason: err.Error()}
		}
		return Outcome{Kind: KindNotFound, Reason: err.Error()}
	}
	if _, statErr := os.Stat(res.Resolved); statErr != nil {
		return Outcome{Kind: KindNotFound, Reason: "file does not exist: " + res.Resolved}
	}
	return Outcome{Kind: KindResolved, AbsolutePath: res.Resolved, Outside: res.Outside, Line: req.Line, Col: req.Col}
}

func (r *Resolver) resolvePartialPath(data settings.Data, req *parser.Request) Outcome {
	// workspace_override takes strict precedence over workspace_hint
	// (spec.md §9 open question (a)): it pins the search to one workspace
	// rather than merely biasing the MRU-ordered scan.
	if req.WorkspaceOverride != "" {
		ws, ok := data.FindWorkspace(req.WorkspaceOverride, true)
		if !ok {
			return Outcome{Kind: KindUnknownWorkspace, WorkspaceName: req.WorkspaceOverride}
		}
		match, found := r.fsSearch.FindSuffixMatch(ws.Path, req.Path)
		if !found {
			return Outcome{Kind: KindNotFound, Reason: "workspace " + ws.Name() + " does not contain " + req.Path}
		}
		return Outcome{Kind: KindResolved, AbsolutePath: match, Line: req.Line, Col: req.Col}
	}

	ordered := r.orderedWorkspaces(data, req.WorkspaceHint)

	var matches []Candidate
	for _, ws := range ordered {
		match, found := r.fsSearch.FindSuffixMatch(ws.Path, req.Path)
		if found {
			matches = append(matches, Candidate{AbsolutePath: match, Workspace: ws.Name()})
		}
	}

	switch len(matches) {
	case 0:
		return Outcome{Kind: KindNotFound, Reason: "no workspace contains " + req.Path}
	case 1:
		return Outcome{Kind: KindResolved, AbsolutePath: matches[0].AbsolutePath, Line: req.Line, Col: req.Col}
	default:
		return Outcome{Kind: KindMultipleCandidates, Candidates: matches, Line: req.Line, Col: req.Col}
	}
}

// orderedWorkspaces applies the workspace_hint-first rule, then falls
// back to descending MRU order (ties by configured position).
func (r *Resolver) orderedWorkspaces(data settings.Data, hint string) []settings.Workspace {
	byPath := make(map[string]settings.Workspace, len(data.Workspaces))
	paths := make([]string, 0, len(data.Workspaces))
	for _, ws := range data.Workspaces {
		byPath[ws.Path] = ws
		paths = append(paths, ws.Path)
	}

	if hint != "" {
		if ws, ok := data.FindWorkspace(hint, false); ok {
			ordered := []settings.Workspace{ws}
			for _, p := range r.mruOrder(paths) {
				if p != ws.Path {
					ordered = append(ordered, byPath[p])
				}
			}
			return ordered
		}
	}

	out := make([]settings.Workspace, 0, len(paths))
	for _, p := range r.mruOrder(paths) {
		out = append(out, byPath[p])
	}
	return out
}

func (r *Resolver) mruOrder(paths []string) []string {
	if r.mruSrc == nil {
		return paths
	}
	return r.mruSrc.Ordered(paths)
}

func (r *Resolver) resolveFullPath(data settings.Data, req *parser.Request) Outcome {
	roots := make([]string, 0, len(data.Workspaces))
	for _, ws := range data.Workspaces {
		roots = append(roots, ws.Path)
	}

	res, err := pathvalidate.Validate(req.AbsolutePath, roots, data.AllowNonWorkspaceFiles, r.realPath)
	if err != nil {
		var outside *pathvalidate.OutsideWorkspaceError
		if errors.As(err, &outside) {
			return Outcome{Kind: KindOutsideWorkspace, AbsolutePath: outside.Resolved, Reason: err.Error()}
		}
		return Outcome{Kind: KindNotFound, Reason: err.Error()}
	}
	return Outcome{Kind: KindResolved, AbsolutePath: res.Resolved, Outside: res.Outside, Line: req.Line, Col: req.Col}
}

func (r *Resolver) resolveProviderPassthrough(ctx context.Context, data settings.Data, req *parser.Request) Outcome {
	if req.WorkspaceOverride != "" {
		if ws, ok := data.FindWorkspace(req.WorkspaceOverride, true); ok {
			return r.resolveWithinWorkspace(data, ws, req)
		}
	}

	repoName := req.OwnerRepoPath
	if idx := strings.LastIndex(repoName, "/"); idx >= 0 {
		repoName = repoName[idx+1:]
	}
	if ws, ok := data.FindWorkspace(repoName, false); ok {
		return r.resolveWithinWorkspace(data, ws, req)
	}

	return Outcome{Kind: KindUnmappedProvider, ProviderHost: req.ProviderHost, OwnerRepoPath: req.OwnerRepoPath}
}

func (r *Resolver) resolveWithinWorkspace(data settings.Data, ws settings.Workspace, req *parser.Request) Outcome {
	candidate := filepath.Join(ws.Path, req.FilePath)
	res, err := pathvalidate.Validate(candidate, []string{ws.Path}, data.AllowNonWorkspaceFiles, r.realPath)
	if err != nil {
		var outside *pathvalidate.OutsideWorkspaceError
		if errors.As(err, &outside) {
			return Outcome{Kind: KindOutsideWorkspace, AbsolutePath: outside.Resolved, Reason: err.Error()}
		}
		return Outcome{Kind: KindNotFound, Reason: err.Error()}
	}

	// A range fragment ("#L10-L20", "#lines-5:10") resolves to its start
	// line per spec.md §4.4 ("#L10-L20 -> use 10"); the end is discarded.
	line, _, ok := provider.FragmentToLineCol(req.Fragment)
	out := Outcome{Kind: KindResolved, AbsolutePath: res.Resolved, Outside: res.Outside}
	if ok {
		out.Line = &line
	}
	return out
}

// osSearcher walks the real filesystem.
type osSearcher struct{}

func (osSearcher) FindSuffixMatch(root, suffix string) (string, bool) {
	suffixSegs := splitSegments(suffix)
	var found string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || found != "" {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if hasSuffixSegments(splitSegments(rel), suffixSegs) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found, found != ""
}

func splitSegments(p string) []string {
	p = filepath.ToSlash(p)
	return strings.Split(p, "/")
}

// hasSuffixSegments reports whether segs ends with suffix, segment by
// segment (not substring), per spec.md §4.4 "suffix at segment boundaries".
func hasSuffixSegments(segs, suffix []string) bool {
	if len(suffix) > len(segs) {
		return false
	}
	offset := len(segs) - len(suffix)
	for i, s := range suffix {
		if segs[offset+i] != s {
			return false
		}
	}
	return true
}
