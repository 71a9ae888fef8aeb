// Package paths provides XDG-compliant path resolution for Hearth.
//
// Resolution order:
// 1. HEARTH_HOME (portable root) → $HEARTH_HOME/{config,state}
// 2. XDG env vars → $XDG_*_HOME/hearth
// 3. Platform defaults → ~/.config/hearth, ~/.local/state/hearth, etc.
package paths

import (
	"os"
	"path/filepath"
)

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if hearthHome := os.Getenv("HEARTH_HOME"); hearthHome != "" {
		return filepath.Join(hearthHome, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if hearthHome := os.Getenv("HEARTH_HOME"); hearthHome != "" {
		return filepath.Join(hearthHome, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the Hearth configuration directory.
// Used for config files like hearth.yml.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "hearth")
}

// StateDir returns the Hearth state directory.
// Used for runtime state, logs, the pidfile.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "hearth")
}

// LogDir returns the directory for component log files.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// RuntimeDir returns the Hearth runtime directory for sockets and pipes.
// Uses XDG_RUNTIME_DIR when available (Linux), falls back to StateDir (macOS).
func RuntimeDir() string {
	if hearthHome := os.Getenv("HEARTH_HOME"); hearthHome != "" {
		return filepath.Join(hearthHome, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "hearth")
	}
	// Fallback: use state dir for socket on macOS/systems without XDG_RUNTIME_DIR
	return StateDir()
}

// PidFilePath returns the path to the hearth host daemon PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "hearthd.pid")
}

// EnsureDirs creates all Hearth directories if they don't exist.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		StateDir(),
		LogDir(),
		RuntimeDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
