package editors

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// TerminalLauncher spawns an argv inside a terminal emulator, for the
// editor families that have no GUI process of their own (vim, nano,
// kakoune, and neovim's cold-start path).
type TerminalLauncher interface {
	SpawnInTerminal(ctx context.Context, argv []string, preference string) error
}

// systemTerminal is the default TerminalLauncher: it resolves a terminal
// emulator binary (preferring an explicit preference, falling back to a
// short platform-specific list) and spawns argv inside it via -e/--.
type systemTerminal struct{}

// NewSystemTerminal returns the default, platform-native TerminalLauncher.
func NewSystemTerminal() TerminalLauncher { return systemTerminal{} }

func (systemTerminal) SpawnInTerminal(ctx context.Context, argv []string, preference string) error {
	if len(argv) == 0 {
		return fmt.Errorf("editors: empty argv for terminal spawn")
	}

	term, execFlags, err := resolveTerminal(preference)
	if err != nil {
		return err
	}

	args := append(append([]string{}, execFlags...), argv...)
	cmd := exec.CommandContext(ctx, term, args...)
	return cmd.Start()
}

func resolveTerminal(preference string) (bin string, execFlags []string, err error) {
	candidates := terminalCandidates(preference)
	for _, c := range candidates {
		if path, lerr := exec.LookPath(c.bin); lerr == nil {
			return path, c.flags, nil
		}
	}
	return "", nil, fmt.Errorf("editors: no terminal emulator found (tried %v)", candidates)
}

type terminalCandidate struct {
	bin   string
	flags []string
}

func terminalCandidates(preference string) []terminalCandidate {
	var list []terminalCandidate
	if preference != "" && preference != "auto" {
		list = append(list, terminalCandidate{bin: preference, flags: []string{"-e"}})
	}
	switch runtime.GOOS {
	case "darwin":
		list = append(list, terminalCandidate{bin: "open", flags: []string{"-a", "Terminal", "--args"}})
	case "windows":
		list = append(list, terminalCandidate{bin: "cmd", flags: []string{"/c", "start", ""}})
	default:
		list = append(list,
			terminalCandidate{bin: "x-terminal-emulator", flags: []string{"-e"}},
			terminalCandidate{bin: "gnome-terminal", flags: []string{"--"}},
			terminalCandidate{bin: "alacritty", flags: []string{"-e"}},
			terminalCandidate{bin: "kitty", flags: []string{"-e"}},
		)
	}
	return list
}
