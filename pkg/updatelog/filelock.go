package updatelog

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// fileLock wraps an exclusive advisory flock on a sentinel file, the same
// single-writer-election mechanism spec.md §4.E.4 calls for: exactly one
// replica holds the lock and becomes the writer.
type fileLock struct {
	f *os.File
}

// tryAcquireFileLock attempts a non-blocking exclusive lock on path,
// creating it if necessary. It returns (nil, nil) if another process
// already holds the lock, rather than an error — losing the race to become
// writer is a normal outcome for a replica.
func tryAcquireFileLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("updatelog: opening lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, nil
		}
		return nil, fmt.Errorf("updatelog: acquiring lock: %w", err)
	}
	return &fileLock{f: f}, nil
}

// release drops the lock and closes the underlying file.
func (l *fileLock) release() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return fmt.Errorf("updatelog: releasing lock: %w", err)
	}
	return l.f.Close()
}

// WriterLock is held by the one replica elected as writer for a deployment.
type WriterLock struct {
	lock *fileLock
}

// ElectWriter attempts to become the writer for the deployment rooted at
// deploymentDir. It returns (nil, nil) if another replica already holds the
// lock — the caller should simply serve reads and not run a Replayer.
func ElectWriter(deploymentDir string) (*WriterLock, error) {
	lock, err := tryAcquireFileLock(filepath.Join(deploymentDir, "WRITER.lock"))
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, nil
	}
	return &WriterLock{lock: lock}, nil
}

// Release gives up the writer lock.
func (w *WriterLock) Release() error {
	return w.lock.release()
}
