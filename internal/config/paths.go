// Package config resolves the persisted-state layout described in spec §6:
// settings, MRU cache, worktrees, and editor last-seen all live under
// <user-config>/sorcery-desktop/.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "sorcery-desktop"

// Dir returns <user-config>/sorcery-desktop, creating it if necessary.
func Dir() (string, error) {
	base, err := userConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, appDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func userConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		if v := os.Getenv("APPDATA"); v != "" {
			return v, nil
		}
	}
	return os.UserConfigDir()
}

// SettingsPath returns <user-config>/sorcery-desktop/settings.yaml.
func SettingsPath() (string, error) { return filePath("settings.yaml") }

// MRUPath returns <user-config>/sorcery-desktop/workspace_mru.yaml.
func MRUPath() (string, error) { return filePath("workspace_mru.yaml") }

// LastSeenPath returns <user-config>/sorcery-desktop/last_seen.yaml.
func LastSeenPath() (string, error) { return filePath("last_seen.yaml") }

// WorktreeRoot returns <user-config>/sorcery-desktop/worktrees, the default
// worktree_root from spec §3 (Settings.worktree_root may override this).
func WorktreeRoot() (string, error) { return filePath("worktrees") }

func filePath(name string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
