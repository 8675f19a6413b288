package editors

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// VSCodeManager handles VS Code and its forks (Cursor, VSCodium) that
// share the `--goto` CLI contract.
type VSCodeManager struct {
	id, displayName, binaryName string
	cache                       binaryCache
}

// NewVSCodeManager builds a manager for one VS Code-family binary, e.g.
// NewVSCodeManager("vscode", "Visual Studio Code", "code").
func NewVSCodeManager(id, displayName, binaryName string) *VSCodeManager {
	return &VSCodeManager{id: id, displayName: displayName, binaryName: binaryName}
}

func (m *VSCodeManager) Descriptor() Descriptor {
	return Descriptor{
		ID: m.id, DisplayName: m.displayName, Family: FamilyVSCode,
		Caps: Capabilities{SupportsFolders: true, SupportsColumn: true},
	}
}

// FindBinary searches PATH, then macOS /Applications, then common user
// install locations, caching the result for 5 minutes (spec.md §4.6).
func (m *VSCodeManager) FindBinary(ctx context.Context) (string, error) {
	if path, ok := m.cache.get(time.Now()); ok {
		return path, nil
	}

	if path, err := exec.LookPath(m.binaryName); err == nil {
		m.cache.set(path, time.Now())
		return path, nil
	}

	for _, candidate := range m.candidatePaths() {
		if _, err := os.Stat(candidate); err == nil {
			m.cache.set(candidate, time.Now())
			return candidate, nil
		}
	}

	return "", fmt.Errorf("editors: %s binary not found", m.id)
}

func (m *VSCodeManager) candidatePaths() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return []string{
			filepath.Join("/Applications", m.displayName+".app", "Contents", "Resources", "app", "bin", m.binaryName),
			filepath.Join(home, "Applications", m.displayName+".app", "Contents", "Resources", "app", "bin", m.binaryName),
		}
	case "windows":
		return []string{
			filepath.Join(os.Getenv("LOCALAPPDATA"), "Programs", m.displayName, "bin", m.binaryName+".cmd"),
		}
	default:
		return []string{
			filepath.Join(home, ".local", "bin", m.binaryName),
			filepath.Join("/usr/share", m.binaryName, "bin", m.binaryName),
		}
	}
}

// Launch reuses an existing window by default (no --new-window flag),
// passing --goto <path>:<line>[:<col>] when line info is present.
func (m *VSCodeManager) Launch(ctx context.Context, target Target, opts LaunchOptions) error {
	bin, err := m.FindBinary(ctx)
	if err != nil {
		return &LaunchFailedError{EditorID: m.id, Reason: err.Error()}
	}

	caps := m.Descriptor().Caps
	if target.IsDir && !caps.SupportsFolders {
		return &FoldersUnsupportedError{EditorID: m.id}
	}

	args := []string{}
	if target.NewWindow {
		args = append(args, "--new-window")
	}

	if !target.IsDir && target.Line != nil {
		loc := target.Path + ":" + strconv.Itoa(*target.Line)
		if target.Col != nil && caps.SupportsColumn {
			loc += ":" + strconv.Itoa(*target.Col)
		}
		args = append(args, "--goto", loc)
	} else {
		args = append(args, target.Path)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	if err := cmd.Start(); err != nil {
		m.cache.invalidate()
		return &LaunchFailedError{EditorID: m.id, Reason: err.Error()}
	}
	return nil
}
