//go:build unix

package lockfile

import (
	"os"
	"syscall"
)

// processAlive probes the holder with signal 0. EPERM still means the
// process exists, just owned by someone else.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}
