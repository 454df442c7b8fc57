// Package lock guards a bridge scratch directory against concurrent daemons.
// Two dispatchers polling and deleting exchange files in the same directory
// would race, so each directory is owned by at most one process.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// LockFileName is the lock file created inside the scratch directory.
const LockFileName = "bridge.lock"

// SessionLock is an exclusive claim on a scratch directory, implemented via
// a PID file + flock(2). The lock stays held while the descriptor is open.
type SessionLock struct {
	path string
	f    *os.File
}

// Acquire claims dir for this process. It fails immediately if another
// process holds the directory.
func Acquire(dir string) (*SessionLock, error) {
	if dir == "" {
		return nil, fmt.Errorf("lock directory is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	path := filepath.Join(dir, LockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	release := func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("scratch directory %s is held by another process: %w", dir, err)
	}

	if err := writePID(f); err != nil {
		release()
		return nil, err
	}

	return &SessionLock{path: path, f: f}, nil
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("write pid: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync lock file: %w", err)
	}
	return nil
}

// Path returns the lock file location.
func (l *SessionLock) Path() string { return l.path }

// Release drops the claim. Safe to call on a nil lock.
func (l *SessionLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
