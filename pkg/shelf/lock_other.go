//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package shelf

import (
	"fmt"
	"os"
)

// Lock is a no-op where flock is unavailable
type Lock struct{}

// Acquire only prepares the state directory on this platform
func Acquire(root string) (*Lock, error) {
	if err := os.MkdirAll(StateDir(root), 0755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &Lock{}, nil
}

// Release does nothing
func (l *Lock) Release() {}
