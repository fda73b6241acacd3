package vocab

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// Lock polling bounds.
const (
	lockPollInitial = 10 * time.Millisecond
	lockPollMax     = 500 * time.Millisecond
)

var (
	// ErrLockTimeout indicates the lock acquisition timed out
	ErrLockTimeout = errors.New("lock acquisition timed out")
)

// SyncLock serializes index rebuilds across processes sharing a base
// directory. It wraps flock(2), so the kernel releases it when the holder
// exits or crashes.
type SyncLock struct {
	path string
	file *os.File
}

// NewSyncLock creates a lock backed by the file at path. The file and its
// parent directories are created on first use.
func NewSyncLock(path string) *SyncLock {
	return &SyncLock{path: path}
}

// TryLock attempts to acquire the lock without blocking. It reports false,
// without error, when another holder has it.
func (l *SyncLock) TryLock() (bool, error) {
	if err := l.open(); err != nil {
		return false, err
	}

	held, err := l.flock()
	if err != nil || !held {
		l.release()
	}
	return held, err
}

// Lock acquires the lock, waiting at most timeout.
func (l *SyncLock) Lock(timeout time.Duration) error {
	return l.LockWithContext(context.Background(), timeout)
}

// LockWithContext acquires the lock, waiting until it is free, timeout
// expires (ErrLockTimeout) or ctx is done.
func (l *SyncLock) LockWithContext(ctx context.Context, timeout time.Duration) error {
	if err := l.open(); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	wait := lockPollInitial

	for {
		if err := ctx.Err(); err != nil {
			l.release()
			return err
		}
		if time.Now().After(deadline) {
			l.release()
			return ErrLockTimeout
		}

		held, err := l.flock()
		if err != nil {
			l.release()
			return err
		}
		if held {
			return nil
		}

		select {
		case <-ctx.Done():
			l.release()
			return ctx.Err()
		case <-time.After(wait):
			wait = min(wait*2, lockPollMax)
		}
	}
}

// Unlock releases the lock. Unlocking a lock that is not held is a no-op.
func (l *SyncLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("flock unlock failed: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close failed: %w", closeErr)
	}
	return nil
}

// IsLocked returns true if this instance holds the lock.
func (l *SyncLock) IsLocked() bool {
	return l.file != nil
}

// Path returns the path to the lock file.
func (l *SyncLock) Path() string {
	return l.path
}

// flock makes one non-blocking attempt.
func (l *SyncLock) flock() (bool, error) {
	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, syscall.EWOULDBLOCK) {
		return false, nil
	}
	return false, fmt.Errorf("flock failed: %w", err)
}

func (l *SyncLock) release() {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}

func (l *SyncLock) open() error {
	if l.file != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	l.file = file
	return nil
}
