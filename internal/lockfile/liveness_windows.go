//go:build windows

package lockfile

import "os"

// processAlive is best-effort on Windows: FindProcess only fails for
// missing processes there, so a found PID is treated as alive.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(pid)
	return err == nil
}
