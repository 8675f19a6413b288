package editors

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// NeovimManager reuses a running Neovim instance over its msgpack-RPC
// socket when one has the target's directory open, per spec.md §4.6:
// enumerate sockets at depth <= 2 under /tmp and $TMPDIR, ask each its
// cwd, and pick the one whose cwd prefixes the target path. No match
// spawns a fresh instance in the configured terminal.
type NeovimManager struct {
	terminal TerminalLauncher
	cache    binaryCache

	// socketDirs defaults to [/tmp, $TMPDIR] but is overridable for tests.
	socketDirs func() []string
}

// NewNeovimManager builds a manager that spawns new instances via term.
func NewNeovimManager(term TerminalLauncher) *NeovimManager {
	return &NeovimManager{terminal: term, socketDirs: defaultSocketDirs}
}

func defaultSocketDirs() []string {
	dirs := []string{"/tmp"}
	if tmp := os.Getenv("TMPDIR"); tmp != "" {
		dirs = append(dirs, tmp)
	}
	return dirs
}

func (m *NeovimManager) Descriptor() Descriptor {
	return Descriptor{
		ID: "neovim", DisplayName: "Neovim", Family: FamilyTerminal,
		Caps: Capabilities{SupportsFolders: true, SupportsColumn: true},
	}
}

func (m *NeovimManager) FindBinary(ctx context.Context) (string, error) {
	if path, ok := m.cache.get(time.Now()); ok {
		return path, nil
	}
	path, err := exec.LookPath("nvim")
	if err != nil {
		return "", fmt.Errorf("editors: nvim not found: %w", err)
	}
	m.cache.set(path, time.Now())
	return path, nil
}

// findReusableSocket scans socketDirs (depth <= 2) for nvim RPC sockets
// whose reported cwd is a prefix of targetPath.
func (m *NeovimManager) findReusableSocket(ctx context.Context, nvimBin, targetPath string) string {
	for _, dir := range m.socketDirs() {
		for _, sock := range scanSocketsDepth2(dir) {
			cwd, err := queryNeovimCWD(ctx, nvimBin, sock)
			if err != nil {
				continue
			}
			if strings.HasPrefix(filepath.Clean(targetPath), filepath.Clean(cwd)) {
				return sock
			}
		}
	}
	return ""
}

func scanSocketsDepth2(root string) []string {
	var sockets []string
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		full := filepath.Join(root, e.Name())
		if isSocketFile(full) {
			sockets = append(sockets, full)
			continue
		}
		if e.IsDir() {
			nested, err := os.ReadDir(full)
			if err != nil {
				continue
			}
			for _, n := range nested {
				nfull := filepath.Join(full, n.Name())
				if isSocketFile(nfull) {
					sockets = append(sockets, nfull)
				}
			}
		}
	}
	return sockets
}

func isSocketFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSocket != 0
}

func queryNeovimCWD(ctx context.Context, nvimBin, socket string) (string, error) {
	out, err := exec.CommandContext(ctx, nvimBin, "--server", socket, "--remote-expr", "getcwd()").Output()
	if err != nil {
		return "", fmt.Errorf("editors: query cwd on %s: %w", socket, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Launch reuses a matching socket via --remote-send, or spawns a fresh
// instance in the configured terminal.
func (m *NeovimManager) Launch(ctx context.Context, target Target, opts LaunchOptions) error {
	bin, err := m.FindBinary(ctx)
	if err != nil {
		return &LaunchFailedError{EditorID: "neovim", Reason: err.Error()}
	}

	if !target.IsDir {
		if sock := m.findReusableSocket(ctx, bin, target.Path); sock != "" {
			line := 1
			if target.Line != nil {
				line = *target.Line
			}
			escaped := strings.ReplaceAll(target.Path, `\`, `\\`)
			escaped = strings.ReplaceAll(escaped, " ", `\ `)
			seq := fmt.Sprintf(":%d<CR>:e %s<CR>", line, escaped)
			cmd := exec.CommandContext(ctx, bin, "--server", sock, "--remote-send", seq)
			if err := cmd.Run(); err == nil {
				return nil
			}
			// Reuse failed; fall through to spawning a fresh instance.
		}
	}

	args := []string{bin}
	if !target.IsDir && target.Line != nil {
		args = append(args, "+"+strconv.Itoa(*target.Line))
	}
	args = append(args, target.Path)
	if err := m.terminal.SpawnInTerminal(ctx, args, opts.TerminalPreference); err != nil {
		m.cache.invalidate()
		return &LaunchFailedError{EditorID: "neovim", Reason: err.Error()}
	}
	return nil
}
