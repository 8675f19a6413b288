package editors

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// EmacsManager reuses a running Emacs daemon session via emacsclient,
// falling back to a fresh instance when no server is reachable.
type EmacsManager struct {
	terminal TerminalLauncher
	cache    binaryCache
}

func NewEmacsManager(term TerminalLauncher) *EmacsManager {
	return &EmacsManager{terminal: term}
}

func (m *EmacsManager) Descriptor() Descriptor {
	return Descriptor{
		ID: "emacs", DisplayName: "Emacs", Family: FamilyTerminal,
		Caps: Capabilities{SupportsFolders: true, SupportsColumn: false},
	}
}

func (m *EmacsManager) FindBinary(ctx context.Context) (string, error) {
	if path, ok := m.cache.get(time.Now()); ok {
		return path, nil
	}
	path, err := exec.LookPath("emacsclient")
	if err != nil {
		return "", fmt.Errorf("editors: emacsclient not found: %w", err)
	}
	m.cache.set(path, time.Now())
	return path, nil
}

func (m *EmacsManager) Launch(ctx context.Context, target Target, opts LaunchOptions) error {
	bin, err := m.FindBinary(ctx)
	if err != nil {
		return &LaunchFailedError{EditorID: "emacs", Reason: err.Error()}
	}
	if target.IsDir && !m.Descriptor().Caps.SupportsFolders {
		return &FoldersUnsupportedError{EditorID: "emacs"}
	}

	args := []string{"-n"} // emacsclient -n: don't block the calling process
	if !target.IsDir && target.Line != nil {
		args = append(args, fmt.Sprintf("+%d", *target.Line))
	}
	args = append(args, target.Path)

	if err := exec.CommandContext(ctx, bin, args...).Run(); err == nil {
		return nil
	}

	// No reachable daemon; spawn a fresh instance in the terminal instead.
	spawnArgs := []string{"emacs"}
	if !target.IsDir && target.Line != nil {
		spawnArgs = append(spawnArgs, "+"+strconv.Itoa(*target.Line))
	}
	spawnArgs = append(spawnArgs, target.Path)
	if err := m.terminal.SpawnInTerminal(ctx, spawnArgs, opts.TerminalPreference); err != nil {
		m.cache.invalidate()
		return &LaunchFailedError{EditorID: "emacs", Reason: err.Error()}
	}
	return nil
}
