package editors

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// VimManager always spawns a fresh instance in the configured terminal —
// unlike Neovim, classic Vim has no remote-control socket to reuse.
type VimManager struct {
	terminal TerminalLauncher
	cache    binaryCache
}

func NewVimManager(term TerminalLauncher) *VimManager {
	return &VimManager{terminal: term}
}

func (m *VimManager) Descriptor() Descriptor {
	return Descriptor{
		ID: "vim", DisplayName: "Vim", Family: FamilyTerminal,
		Caps: Capabilities{SupportsFolders: true, SupportsColumn: false},
	}
}

func (m *VimManager) FindBinary(ctx context.Context) (string, error) {
	if path, ok := m.cache.get(time.Now()); ok {
		return path, nil
	}
	path, err := exec.LookPath("vim")
	if err != nil {
		return "", fmt.Errorf("editors: vim not found: %w", err)
	}
	m.cache.set(path, time.Now())
	return path, nil
}

func (m *VimManager) Launch(ctx context.Context, target Target, opts LaunchOptions) error {
	bin, err := m.FindBinary(ctx)
	if err != nil {
		return &LaunchFailedError{EditorID: "vim", Reason: err.Error()}
	}
	if target.IsDir && !m.Descriptor().Caps.SupportsFolders {
		return &FoldersUnsupportedError{EditorID: "vim"}
	}

	args := []string{bin}
	if !target.IsDir && target.Line != nil {
		args = append(args, "+"+strconv.Itoa(*target.Line))
	}
	args = append(args, target.Path)

	if err := m.terminal.SpawnInTerminal(ctx, args, opts.TerminalPreference); err != nil {
		m.cache.invalidate()
		return &LaunchFailedError{EditorID: "vim", Reason: err.Error()}
	}
	return nil
}
