// Package lock provides cross-process mutual exclusion for the state file
// using flock(2) on a companion lock file. The record itself is never
// opened for locking. Two wait policies cover all callers: a bounded wait
// (Acquire) and a single attempt (TryAcquire).
package lock

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Suffix is appended to the state file path to form the lock file path.
const Suffix = ".lock"

// pollInterval is how often Acquire retries while waiting.
const pollInterval = 50 * time.Millisecond

// ErrTimeout is returned by Acquire when the lock stays held past the
// wait budget.
var ErrTimeout = errors.New("timed out waiting for state lock")

// ErrLocked is returned by TryAcquire when the lock is held right now.
var ErrLocked = errors.New("state lock held by another process")

// FileLock guards a state file via its companion lock file. The zero value
// is not usable; create one with New. A FileLock is owned by a single
// acquire/release sequence and is not safe for concurrent use.
type FileLock struct {
	path string
	file *os.File
}

// New creates a lock for the state file at statePath. The lock file lives
// alongside it at statePath + ".lock" and is created on first acquisition.
func New(statePath string) *FileLock {
	return &FileLock{path: statePath + Suffix}
}

// Path returns the lock file location.
func (l *FileLock) Path() string {
	return l.path
}

// Acquire takes the lock, retrying until timeout elapses. Returns
// ErrTimeout if the lock is still held by then.
func (l *FileLock) Acquire(timeout time.Duration) error {
	return l.acquire(timeout)
}

// TryAcquire takes the lock only if it is free right now. Returns
// ErrLocked if another process holds it.
func (l *FileLock) TryAcquire() error {
	return l.acquire(0)
}

func (l *FileLock) acquire(wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		ok, err := l.tryOnce()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if wait <= 0 {
			return ErrLocked
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		if remaining < pollInterval {
			time.Sleep(remaining)
		} else {
			time.Sleep(pollInterval)
		}
	}
}

// tryOnce makes a single non-blocking attempt. Returns (false, nil) when
// the lock is held elsewhere.
func (l *FileLock) tryOnce() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	ok, err := flockExclusive(f)
	if err != nil {
		_ = f.Close()
		return false, fmt.Errorf("flock: %w", err)
	}
	if !ok {
		_ = f.Close()
		return false, nil
	}

	l.file = f
	return true, nil
}

// Release drops the lock and closes the lock file. Releasing a lock that
// is not held is a no-op.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}

	if err := flockRelease(l.file); err != nil {
		_ = l.file.Close()
		l.file = nil
		return fmt.Errorf("funlock: %w", err)
	}

	err := l.file.Close()
	l.file = nil
	return err
}
