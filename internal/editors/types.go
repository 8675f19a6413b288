// Package editors implements the registry and per-family launch managers
// from spec.md §4.6: binary discovery with a 5-minute TTL cache,
// capability-gated launch (line/column, folder support), and the
// terminal-editor session-reuse strategies (Neovim socket control,
// emacsclient).
package editors

import "context"

// Family groups editors that share a discovery/launch strategy.
type Family int

const (
	FamilyVSCode Family = iota
	FamilyJetBrains
	FamilyTerminal
	FamilyOther
)

func (f Family) String() string {
	switch f {
	case FamilyVSCode:
		return "vscode"
	case FamilyJetBrains:
		return "jetbrains"
	case FamilyTerminal:
		return "terminal"
	default:
		return "other"
	}
}

// Capabilities are authoritative: managers defer to these flags rather
// than guessing from the family.
type Capabilities struct {
	SupportsFolders bool
	SupportsColumn  bool
}

// Descriptor is the process-wide, Registry-owned identity of one
// editor (spec.md "Editor descriptor").
type Descriptor struct {
	ID          string
	DisplayName string
	Family      Family
	Caps        Capabilities
}

// Target is what a manager is asked to open.
type Target struct {
	Path     string // file or directory, absolute
	IsDir    bool
	Line     *int
	Col      *int
	NewWindow bool
}

// LaunchOptions carries cross-cutting launch preferences that aren't
// part of the target itself.
type LaunchOptions struct {
	TerminalPreference string // empty or "auto" = platform default terminal list
}

// LaunchFailedError is returned by Manager.Launch on any failure to spawn
// or drive the editor.
type LaunchFailedError struct {
	EditorID string
	Reason   string
}

func (e *LaunchFailedError) Error() string {
	return "launch failed for " + e.EditorID + ": " + e.Reason
}

// FoldersUnsupportedError is returned when Target.IsDir is true but the
// manager's capabilities say SupportsFolders is false.
type FoldersUnsupportedError struct{ EditorID string }

func (e *FoldersUnsupportedError) Error() string {
	return e.EditorID + " does not support opening folders"
}

// Manager is implemented once per editor family (or, for JetBrains,
// once covering every IDE product on that family's shared discovery and
// launch shape).
type Manager interface {
	Descriptor() Descriptor
	FindBinary(ctx context.Context) (string, error)
	Launch(ctx context.Context, target Target, opts LaunchOptions) error
}
