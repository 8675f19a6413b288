package editors

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// OtherTerminalManager covers terminal editors with a simple positional
// line-flag contract and no session-reuse protocol (nano, micro,
// kakoune — spec.md §4.6 "Others").
type OtherTerminalManager struct {
	id, displayName, binaryName, lineFlagPrefix string
	caps                                        Capabilities
	terminal                                    TerminalLauncher
	cache                                       binaryCache
}

// NewOtherTerminalManager builds a manager for a terminal editor whose
// line argument is "<lineFlagPrefix><n>" appended before the path, e.g.
// nano uses "+", kakoune uses "+".
func NewOtherTerminalManager(id, displayName, binaryName, lineFlagPrefix string, caps Capabilities, term TerminalLauncher) *OtherTerminalManager {
	return &OtherTerminalManager{
		id: id, displayName: displayName, binaryName: binaryName,
		lineFlagPrefix: lineFlagPrefix, caps: caps, terminal: term,
	}
}

func (m *OtherTerminalManager) Descriptor() Descriptor {
	return Descriptor{ID: m.id, DisplayName: m.displayName, Family: FamilyOther, Caps: m.caps}
}

func (m *OtherTerminalManager) FindBinary(ctx context.Context) (string, error) {
	if path, ok := m.cache.get(time.Now()); ok {
		return path, nil
	}
	path, err := exec.LookPath(m.binaryName)
	if err != nil {
		return "", fmt.Errorf("editors: %s not found: %w", m.binaryName, err)
	}
	m.cache.set(path, time.Now())
	return path, nil
}

func (m *OtherTerminalManager) Launch(ctx context.Context, target Target, opts LaunchOptions) error {
	bin, err := m.FindBinary(ctx)
	if err != nil {
		return &LaunchFailedError{EditorID: m.id, Reason: err.Error()}
	}
	if target.IsDir && !m.caps.SupportsFolders {
		return &FoldersUnsupportedError{EditorID: m.id}
	}

	args := []string{bin}
	if !target.IsDir && target.Line != nil {
		args = append(args, m.lineFlagPrefix+strconv.Itoa(*target.Line))
	}
	args = append(args, target.Path)

	if err := m.terminal.SpawnInTerminal(ctx, args, opts.TerminalPreference); err != nil {
		m.cache.invalidate()
		return &LaunchFailedError{EditorID: m.id, Reason: err.Error()}
	}
	return nil
}
