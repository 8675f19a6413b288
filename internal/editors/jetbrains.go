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

// JetBrainsManager handles one JetBrains IDE product (IntelliJ IDEA,
// GoLand, PyCharm, ...). Discovery order per spec.md §4.6: (1)
// standalone app/install dir, (2) Toolbox channels ch-0 then ch-1
// (newest by directory mtime), (3) heuristic Toolbox products-root scan.
type JetBrainsManager struct {
	id, displayName string
	appName         string // e.g. "IntelliJ IDEA.app" / "goland" binary stem
	standaloneDirs  []string
	toolboxProduct  string // Toolbox product folder name, e.g. "IDEA-U"

	cache binaryCache
}

// NewJetBrainsManager builds a manager for one JetBrains product.
func NewJetBrainsManager(id, displayName, appName, toolboxProduct string, standaloneDirs []string) *JetBrainsManager {
	return &JetBrainsManager{id: id, displayName: displayName, appName: appName, toolboxProduct: toolboxProduct, standaloneDirs: standaloneDirs}
}

func (m *JetBrainsManager) Descriptor() Descriptor {
	return Descriptor{
		ID: m.id, DisplayName: m.displayName, Family: FamilyJetBrains,
		Caps: Capabilities{SupportsFolders: true, SupportsColumn: true},
	}
}

func (m *JetBrainsManager) FindBinary(ctx context.Context) (string, error) {
	if path, ok := m.cache.get(time.Now()); ok {
		return path, nil
	}

	if path := m.standaloneInstall(); path != "" {
		m.cache.set(path, time.Now())
		return path, nil
	}
	if path := m.newestToolboxChannel("ch-0"); path != "" {
		m.cache.set(path, time.Now())
		return path, nil
	}
	if path := m.newestToolboxChannel("ch-1"); path != "" {
		m.cache.set(path, time.Now())
		return path, nil
	}
	if path := m.scanToolboxRoot(); path != "" {
		m.cache.set(path, time.Now())
		return path, nil
	}
	return "", fmt.Errorf("editors: %s binary not found", m.id)
}

func (m *JetBrainsManager) standaloneInstall() string {
	for _, dir := range m.standaloneDirs {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
	}
	return ""
}

func (m *JetBrainsManager) toolboxRoot() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "JetBrains", "Toolbox", "apps")
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "JetBrains", "Toolbox", "apps")
	default:
		return filepath.Join(home, ".local", "share", "JetBrains", "Toolbox", "apps")
	}
}

// newestToolboxChannel looks under <toolboxRoot>/<product>/<channel>/ and
// returns the newest-by-mtime install directory's binary, if any.
func (m *JetBrainsManager) newestToolboxChannel(channel string) string {
	channelDir := filepath.Join(m.toolboxRoot(), m.toolboxProduct, channel)
	entries, err := os.ReadDir(channelDir)
	if err != nil {
		return ""
	}

	var newest string
	var newestTime int64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mt := info.ModTime().Unix(); mt > newestTime {
			newestTime = mt
			newest = e.Name()
		}
	}
	if newest == "" {
		return ""
	}
	return filepath.Join(channelDir, newest)
}

// scanToolboxRoot is the last-resort heuristic scan across every
// product directory under the Toolbox apps root.
func (m *JetBrainsManager) scanToolboxRoot() string {
	root := m.toolboxRoot()
	products, err := os.ReadDir(root)
	if err != nil {
		return ""
	}
	for _, p := range products {
		if !p.IsDir() {
			continue
		}
		product := &JetBrainsManager{toolboxProduct: p.Name()}
		candidate := product.newestToolboxChannel("ch-0")
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// Launch follows spec.md §4.6's per-OS shapes, invalidating the cache
// and retrying once with a freshly discovered binary on failure.
func (m *JetBrainsManager) Launch(ctx context.Context, target Target, opts LaunchOptions) error {
	if err := m.launchOnce(ctx, target); err != nil {
		m.cache.invalidate()
		if _, findErr := m.FindBinary(ctx); findErr != nil {
			return &LaunchFailedError{EditorID: m.id, Reason: findErr.Error()}
		}
		if retryErr := m.launchOnce(ctx, target); retryErr != nil {
			return &LaunchFailedError{EditorID: m.id, Reason: retryErr.Error()}
		}
	}
	return nil
}

func (m *JetBrainsManager) launchOnce(ctx context.Context, target Target) error {
	bin, err := m.FindBinary(ctx)
	if err != nil {
		return err
	}

	caps := m.Descriptor().Caps
	if target.IsDir && !caps.SupportsFolders {
		return &FoldersUnsupportedError{EditorID: m.id}
	}

	var cmd *exec.Cmd
	lineArgs := []string{}
	if !target.IsDir && target.Line != nil {
		lineArgs = append(lineArgs, "--line", strconv.Itoa(*target.Line))
	}

	switch runtime.GOOS {
	case "darwin":
		// The -n flag is mandatory: without it, --args is silently
		// dropped by `open` when the app is already running.
		args := append([]string{"-n", "-a", bin, "--args"}, lineArgs...)
		args = append(args, target.Path)
		cmd = exec.CommandContext(ctx, "open", args...)
	case "windows":
		args := append([]string{"/c", "start", "", bin}, lineArgs...)
		args = append(args, target.Path)
		cmd = exec.CommandContext(ctx, "cmd", args...)
	default:
		args := append(append([]string{}, lineArgs...), target.Path)
		cmd = exec.CommandContext(ctx, bin, args...)
	}
	return cmd.Start()
}
