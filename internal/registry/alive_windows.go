//go:build windows

package registry

import "os"

// IsProcessAlive reports whether a process with the given PID exists.
// On Windows FindProcess opens a handle, which fails for exited PIDs.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = proc.Release()
	return true
}
