//go:build !unix

package lock

import (
	"errors"
	"os"
)

// flockExclusive returns an error on platforms without flock(2).
func flockExclusive(f *os.File) (bool, error) {
	return false, errors.New("file locking not supported on this platform")
}

func flockRelease(f *os.File) error {
	return nil
}
