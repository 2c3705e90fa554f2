package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const (
	lockFileSuffix = ".lock"
	lockRetryDelay = 10 * time.Millisecond
)

// fileLock is an exclusive flock on a sidecar file next to the store. It
// serializes writers across processes; the in-process RWMutex still guards
// readers.
type fileLock struct {
	file *os.File
}

func acquireFileLock(ctx context.Context, storePath string) (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(storePath), storeDirMode); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	f, err := os.OpenFile(storePath+lockFileSuffix, os.O_CREATE|os.O_RDWR, storeFileMode)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return &fileLock{file: f}, nil
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) && !errors.Is(err, syscall.EINTR) {
			_ = f.Close()
			return nil, fmt.Errorf("acquire store lock: %w", err)
		}

		timer := time.NewTimer(lockRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = f.Close()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// release keeps the lock file on disk. Removing it would let a waiter lock
// an unlinked inode while a newcomer locks a fresh file.
func (l *fileLock) release() error {
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("release store lock: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}
	return nil
}
