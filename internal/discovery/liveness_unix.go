//go:build !windows

package discovery

import "syscall"

// processAlive sends signal 0 to pid, which performs no action but fails
// with ESRCH if no such process exists. This is the standard POSIX
// liveness probe.
func processAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}
