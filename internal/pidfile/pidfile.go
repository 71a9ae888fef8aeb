// Package pidfile enforces the single-daemon-instance rule through a PID
// file in the state directory.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hearthdesk/hearth/pkg/process"
)

// Acquire claims the pidfile for the current process. A pidfile naming a
// live process means another daemon owns it; one naming a dead process is
// stale and gets replaced.
func Acquire(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}

	if pid, err := Read(path); err == nil {
		if process.IsProcessAlive(pid) {
			return fmt.Errorf("daemon already running with PID %d", pid)
		}
		_ = os.Remove(path)
	}

	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid), 0644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// Release removes the pidfile.
func Release(path string) error {
	return os.Remove(path)
}

// Read parses the PID recorded in the file.
func Read(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(content)))
}

// IsRunning reports whether the daemon named by the pidfile is alive, and
// its PID when one is recorded.
func IsRunning(path string) (bool, int, error) {
	pid, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return process.IsProcessAlive(pid), pid, nil
}
