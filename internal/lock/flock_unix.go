//go:build unix

package lock

import (
	"os"
	"syscall"
)

// flockExclusive makes one non-blocking attempt at an exclusive flock on f.
// Returns (false, nil) when another process holds the lock.
func flockExclusive(f *os.File) (bool, error) {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == syscall.EWOULDBLOCK {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// flockRelease drops the flock held through f.
func flockRelease(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
