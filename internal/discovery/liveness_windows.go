//go:build windows

package discovery

import "os"

// processAlive on Windows has no null-signal probe; it reports whether
// os.FindProcess can open a handle to pid, so a pid reused by an unrelated
// process reads as alive.
func processAlive(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}
