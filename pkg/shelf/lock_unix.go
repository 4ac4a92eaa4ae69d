//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package shelf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arc-language/bake/pkg/core"
	"golang.org/x/sys/unix"
)

const lockFileName = "lock"

// Lock is an exclusive advisory lock on a shelf
type Lock struct {
	file *os.File
}

// Acquire takes the shelf lock without blocking. A lock held by another
// process fails with ErrShelfLocked. The kernel drops the lock when the
// process exits, so an orphaned lock file is harmless.
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

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", core.ErrShelfLocked, path)
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	return &Lock{file: f}, nil
}

// Release unlocks and closes the lock file. Safe to call more than once.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	l.file.Close()
	l.file = nil
}
