// Package daemonlock marks a running daemon with an flock on a well-known
// file so other calsnap processes can tell whether one is up.
package daemonlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

const lockFileMode = 0o600

var ErrHeld = errors.New("daemon lock is held by another process")

type Lock struct {
	path string
	file *os.File
}

func New(path string) *Lock {
	return &Lock{path: path}
}

// TryLock takes the lock without waiting and records the pid in the file.
// It fails with ErrHeld when another daemon owns it.
func (l *Lock) TryLock() error {
	if l.file != nil {
		return nil
	}

	f, held, err := tryFlock(l.path)
	if err != nil {
		return err
	}
	if held {
		return fmt.Errorf("%w: %s", ErrHeld, l.path)
	}

	if err := f.Truncate(0); err != nil {
		unlockAndClose(f)
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		unlockAndClose(f)
		return fmt.Errorf("write pid to lock file: %w", err)
	}

	l.file = f
	return nil
}

func (l *Lock) Unlock() error {
	if l.file == nil {
		return nil
	}

	f := l.file
	l.file = nil
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		_ = f.Close()
		return fmt.Errorf("release daemon lock: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}
	return nil
}

// Held reports whether some process currently holds the lock at path.
func Held(path string) (bool, error) {
	f, held, err := tryFlock(path)
	if err != nil || held {
		return held, err
	}
	unlockAndClose(f)
	return false, nil
}

func tryFlock(path string) (*os.File, bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, false, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFileMode)
	if err != nil {
		return nil, false, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("acquire daemon lock: %w", err)
	}

	return f, false, nil
}

func unlockAndClose(f *os.File) {
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	_ = f.Close()
}
