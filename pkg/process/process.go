// Package process probes host process state.
package process

import (
	"os"
	"syscall"
)

// IsProcessAlive reports whether pid belongs to a live process. It sends
// signal 0, which performs the existence check without delivering anything:
// ESRCH means the process is gone, EPERM means it exists but is owned by
// someone else, and still counts as alive.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	// FindProcess never fails on Unix.
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = proc.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}
