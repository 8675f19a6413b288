// Package parser lexes a srcuri://… URL into a typed Request.
//
// This is a hand-rolled, right-to-left tokenizer rather than a generic
// net/url parse-then-reinterpret — the grammar needs to reject partial
// line/column suffixes in full (never partially), and net/url's query
// decoding throws away key order, which the spec's "first occurrence
// wins" precedence rule depends on. The teacher corpus never needed a
// URL parser of its own; this package is grounded on the protocol grammar
// in spec.md §4.1 directly.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind discriminates the Request variants from spec.md §3.
type Kind int

const (
	KindPartialPath Kind = iota
	KindWorkspacePath
	KindFullPath
	KindProviderPassthrough
)

func (k Kind) String() string {
	switch k {
	case KindPartialPath:
		return "PartialPath"
	case KindWorkspacePath:
		return "WorkspacePath"
	case KindFullPath:
		return "FullPath"
	case KindProviderPassthrough:
		return "ProviderPassthrough"
	default:
		return "Unknown"
	}
}

// RefKind discriminates a GitRef tagged union (spec.md §3).
type RefKind int

const (
	RefCommit RefKind = iota
	RefBranch
	RefTag
)

// GitRef is the tagged union Commit(sha) | Branch(name) | Tag(name).
type GitRef struct {
	Kind  RefKind
	Value string
}

// Request is a parsed, typed representation of a srcuri://… URL. Go doesn't
// have sum types, so one struct carries every variant's fields; Kind says
// which ones are meaningful — this mirrors how the teacher corpus models
// its own WorkspaceEntry (a single struct reused across "workspace" and
// legacy "subclone" shapes) rather than reaching for an interface type.
type Request struct {
	Kind Kind

	// PartialPath / WorkspacePath
	Workspace     string // authority, WorkspacePath only
	Path          string
	WorkspaceHint string

	// FullPath
	AbsolutePath string

	// ProviderPassthrough
	ProviderHost  string
	OwnerRepoPath string
	FilePath      string
	Fragment      string

	// Shared
	Line   *int
	Col    *int
	GitRef *GitRef
	Remote string

	// Query overrides that apply regardless of classification (spec.md
	// §4.1.4: "workspace is an override that survives all other
	// classification").
	WorkspaceOverride string
}

// MalformedError is returned when a URL could not be classified at all —
// never for semantic reasons (missing workspace, bad line number), which
// are resolver concerns per spec.md §4.1.
type MalformedError struct {
	Input  string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed srcuri url %q: %s", e.Input, e.Reason)
}

const scheme = "srcuri:"

var (
	reTwoNum = regexp.MustCompile(`:([0-9]+):([0-9]+)$`)
	reOneNum = regexp.MustCompile(`:([0-9]+)$`)
)

var refQueryKeys = map[string]RefKind{
	"commit": RefCommit,
	"sha":    RefCommit,
	"branch": RefBranch,
	"tag":    RefTag,
}

// Parse lexes a srcuri://… string into a Request. It is pure, total on
// UTF-8 input, and never panics or blocks.
func Parse(raw string) (*Request, error) {
	if !utf8.ValidString(raw) {
		return nil, &MalformedError{Input: raw, Reason: "invalid UTF-8"}
	}
	if !strings.HasPrefix(raw, scheme) {
		return nil, &MalformedError{Input: raw, Reason: "missing srcuri: scheme"}
	}
	rest := raw[len(scheme):]
	if rest == "" {
		return nil, &MalformedError{Input: raw, Reason: "empty after scheme"}
	}
	if !strings.HasPrefix(rest, "//") {
		return nil, &MalformedError{Input: raw, Reason: "missing // after scheme"}
	}
	rest = rest[2:]

	// Fragments are stripped before query and classification, and
	// preserved raw — §4.1.5 only asks that ProviderPassthrough keep
	// them; other kinds simply ignore the captured value.
	var fragment string
	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		fragment = rest[idx+1:]
		rest = rest[:idx]
	}

	// Query overlay, order-preserving (net/url.ParseQuery discards
	// key order, which the "first occurrence wins" rule needs).
	var queryPairs []queryPair
	if idx := strings.IndexByte(rest, '?'); idx >= 0 {
		queryPairs = parseQuery(rest[idx+1:])
		rest = rest[:idx]
	}

	if rest == "" {
		return nil, &MalformedError{Input: raw, Reason: "empty path"}
	}

	req, err := classify(rest)
	if err != nil {
		return nil, &MalformedError{Input: raw, Reason: err.Error()}
	}

	req.Fragment = fragment
	applyQueryOverlay(req, queryPairs)
	return req, nil
}

// classify implements spec.md §4.1 rule 1: authority classification, and
// (for non-provider kinds) rule 2: line/column extraction.
func classify(pathPart string) (*Request, error) {
	idx := strings.IndexByte(pathPart, '/')

	var authority, remainder string
	hasSlash := idx >= 0
	if hasSlash {
		authority = pathPart[:idx]
		remainder = pathPart[idx+1:]
	} else {
		authority = pathPart
		remainder = ""
	}

	remainderSegments := 0
	if remainder != "" {
		remainderSegments = len(strings.Split(remainder, "/"))
	}

	switch {
	case authority != "" && strings.Contains(authority, ".") && remainderSegments >= 2:
		return classifyProvider(authority, remainder), nil

	case authority == "":
		// Triple-slash form: authority empty, path rooted at "/".
		req := &Request{Kind: KindFullPath}
		line, col, path := extractLineCol("/" + remainder)
		req.AbsolutePath = path
		req.Line, req.Col = line, col
		return req, nil

	case !hasSlash || remainderSegments == 0:
		// "authority" was really just a bare filename (no slash at
		// all), or remainder is empty: PartialPath, authority
		// prepended back onto the path.
		full := authority
		if remainder != "" {
			full = authority + "/" + remainder
		}
		req := &Request{Kind: KindPartialPath}
		line, col, path := extractLineCol(full)
		req.Path = path
		req.Line, req.Col = line, col
		return req, nil

	case remainderSegments == 1 && !strings.Contains(remainder, "/"):
		// Remainder is a single filename with no slash: still
		// PartialPath per §4.1 rule 1, authority prepended back.
		req := &Request{Kind: KindPartialPath}
		line, col, path := extractLineCol(authority + "/" + remainder)
		req.Path = path
		req.Line, req.Col = line, col
		return req, nil

	default:
		// Remainder contains a slash: WorkspacePath.
		req := &Request{Kind: KindWorkspacePath, Workspace: authority}
		line, col, path := extractLineCol(remainder)
		req.Path = path
		req.Line, req.Col = line, col
		return req, nil
	}
}

// classifyProvider parses the GitHub/GitLab/Bitbucket-style
// owner/repo[/blob|tree|src/ref/path...] convention. Unrecognized
// sub-paths are kept only as owner/repo with no file_path or git_ref —
// per spec.md §9 open question (c), unknown shapes degrade gracefully
// rather than guessing.
func classifyProvider(host, remainder string) *Request {
	segments := strings.Split(remainder, "/")
	req := &Request{Kind: KindProviderPassthrough, ProviderHost: host}

	if len(segments) < 2 {
		req.OwnerRepoPath = remainder
		return req
	}
	req.OwnerRepoPath = segments[0] + "/" + segments[1]
	rest := segments[2:]
	if len(rest) == 0 {
		return req
	}

	switch {
	case len(rest) >= 3 && (rest[0] == "blob" || rest[0] == "tree" || rest[0] == "raw" || rest[0] == "commit"):
		req.GitRef = inferRefKind(rest[1])
		req.FilePath = strings.Join(rest[2:], "/")
	case len(rest) >= 4 && rest[0] == "-" && (rest[1] == "blob" || rest[1] == "tree"):
		// GitLab: owner/repo/-/blob/<ref>/<path>
		req.GitRef = inferRefKind(rest[2])
		req.FilePath = strings.Join(rest[3:], "/")
	case len(rest) >= 2 && rest[0] == "src":
		// Bitbucket: owner/repo/src/<ref>/<path>
		req.GitRef = inferRefKind(rest[1])
		req.FilePath = strings.Join(rest[2:], "/")
	default:
		req.FilePath = strings.Join(rest, "/")
	}
	return req
}

var hexSHA = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)

// inferRefKind guesses Commit vs Branch for a ref embedded in a provider
// path segment, where the URL grammar itself doesn't disambiguate (unlike
// the query overlay's explicit commit=/branch=/tag= keys).
func inferRefKind(ref string) *GitRef {
	if hexSHA.MatchString(ref) {
		return &GitRef{Kind: RefCommit, Value: ref}
	}
	return &GitRef{Kind: RefBranch, Value: ref}
}

// extractLineCol strips a trailing :<n>[:<m>] from s, right-to-left,
// accepting only pure decimal digits. An invalid n or m rejects the
// entire suffix — it is never partially extracted (spec.md §4.1 rule 2).
func extractLineCol(s string) (line, col *int, path string) {
	if m := reTwoNum.FindStringSubmatchIndex(s); m != nil {
		nStr := s[m[2]:m[3]]
		mStr := s[m[4]:m[5]]
		n, nErr := strconv.Atoi(nStr)
		mm, mErr := strconv.Atoi(mStr)
		if nErr == nil && mErr == nil && n >= 1 && mm >= 0 && mm <= 120 {
			return &n, &mm, s[:m[0]]
		}
		return nil, nil, s
	}
	if m := reOneNum.FindStringSubmatchIndex(s); m != nil {
		nStr := s[m[2]:m[3]]
		n, err := strconv.Atoi(nStr)
		if err == nil && n >= 1 {
			return &n, nil, s[:m[0]]
		}
		return nil, nil, s
	}
	return nil, nil, s
}

type queryPair struct{ key, value string }

// parseQuery splits a raw query string into ordered key/value pairs,
// preserving left-to-right order (net/url.ParseQuery returns a map and
// loses it). Percent-decoding follows net/url's QueryUnescape.
func parseQuery(raw string) []queryPair {
	if raw == "" {
		return nil
	}
	var pairs []queryPair
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		key = queryUnescape(key)
		value = queryUnescape(value)
		pairs = append(pairs, queryPair{key: key, value: value})
	}
	return pairs
}

func queryUnescape(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if v, err := strconv.ParseInt(s[i+1:i+3], 16, 16); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// applyQueryOverlay implements spec.md §4.1 rule 4: commit/sha/branch/tag
// precedence (first occurrence wins), remote passthrough, and the
// workspace/workspaceHint overrides.
func applyQueryOverlay(req *Request, pairs []queryPair) {
	refSet := false
	for _, p := range pairs {
		switch p.key {
		case "commit", "sha", "branch", "tag":
			if !refSet {
				req.GitRef = &GitRef{Kind: refQueryKeys[p.key], Value: p.value}
				refSet = true
			}
		case "remote":
			if req.Remote == "" {
				req.Remote = p.value
			}
		case "workspace":
			if req.WorkspaceOverride == "" {
				req.WorkspaceOverride = p.value
			}
		case "workspaceHint":
			if req.WorkspaceHint == "" {
				req.WorkspaceHint = p.value
			}
		}
	}
}

// Render reconstructs a srcuri://… string from a Request, for the
// parse∘render identity invariant (spec.md §8 #1). Query keys are
// rendered in a fixed canonical order, not necessarily the order the
// original URL used — the invariant is about re-parsing to an equal
// Request, not byte-for-byte text equality.
func Render(r *Request) string {
	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("//")

	switch r.Kind {
	case KindFullPath:
		b.WriteString(renderLineCol(r.AbsolutePath, r.Line, r.Col))
	case KindPartialPath:
		b.WriteString(renderLineCol(r.Path, r.Line, r.Col))
	case KindWorkspacePath:
		b.WriteString(r.Workspace)
		b.WriteString("/")
		b.WriteString(renderLineCol(r.Path, r.Line, r.Col))
	case KindProviderPassthrough:
		b.WriteString(r.ProviderHost)
		b.WriteString("/")
		b.WriteString(r.OwnerRepoPath)
		if r.FilePath != "" {
			b.WriteString("/blob/")
			if r.GitRef != nil {
				b.WriteString(r.GitRef.Value)
			}
			b.WriteString("/")
			b.WriteString(r.FilePath)
		}
	}

	var query []string
	if r.Kind != KindProviderPassthrough && r.GitRef != nil {
		switch r.GitRef.Kind {
		case RefCommit:
			query = append(query, "commit="+r.GitRef.Value)
		case RefBranch:
			query = append(query, "branch="+r.GitRef.Value)
		case RefTag:
			query = append(query, "tag="+r.GitRef.Value)
		}
	}
	if r.Remote != "" {
		query = append(query, "remote="+r.Remote)
	}
	if r.WorkspaceOverride != "" {
		query = append(query, "workspace="+r.WorkspaceOverride)
	}
	if r.WorkspaceHint != "" && r.Kind == KindPartialPath {
		query = append(query, "workspaceHint="+r.WorkspaceHint)
	}
	if len(query) > 0 {
		b.WriteString("?")
		b.WriteString(strings.Join(query, "&"))
	}
	if r.Fragment != "" {
		b.WriteString("#")
		b.WriteString(r.Fragment)
	}
	return b.String()
}

func renderLineCol(path string, line, col *int) string {
	if line == nil {
		return path
	}
	if col == nil {
		return fmt.Sprintf("%s:%d", path, *line)
	}
	return fmt.Sprintf("%s:%d:%d", path, *line, *col)
}
