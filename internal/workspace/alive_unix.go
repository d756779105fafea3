//go:build unix

package workspace

import (
	"errors"
	"syscall"
	"time"
)

func isStale(pid int, _ time.Time) bool {
	err := syscall.Kill(pid, 0)
	// EPERM means the process exists but belongs to someone else.
	return err != nil && !errors.Is(err, syscall.EPERM)
}
