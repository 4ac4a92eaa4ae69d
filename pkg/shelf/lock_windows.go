//go:build windows

package shelf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arc-language/bake/pkg/core"
	"golang.org/x/sys/windows"
)

const lockFileName = "lock"

// Lock is an exclusive lock on a shelf
type Lock struct {
	file *os.File
}

// Acquire takes the shelf lock without blocking. A lock held by another
// process fails with ErrShelfLocked. Windows releases the lock when the
// handle is closed or the process exits.
func Acquire(root string) (*Lock, error) {
	dir := StateDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	path := filepath.Join(dir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	ol := new(windows.Overlapped)
	flags := uint32(windows.LOCKFILE_EXCLUSIVE_LOCK | windows.LOCKFILE_FAIL_IMMEDIATELY)
	if err := windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, 1, 0, ol); err != nil {
		f.Close()
		if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			return nil, fmt.Errorf("%w: %s", core.ErrShelfLocked, path)
		}
		return nil, fmt.Errorf("LockFileEx %s: %w", path, err)
	}

	return &Lock{file: f}, nil
}

// Release unlocks and closes the lock file. Safe to call more than once.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = windows.UnlockFileEx(windows.Handle(l.file.Fd()), 0, 1, 0, new(windows.Overlapped))
	l.file.Close()
	l.file = nil
}
