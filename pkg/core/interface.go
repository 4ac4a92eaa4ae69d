package core

import (
	"context"
	"fmt"
)

// Lifecycle is the set of operations the dispatcher may invoke on a recipe.
// Exactly one of them runs per bake invocation.
type Lifecycle interface {
	// Install fetches, extracts and builds the recipe, then links it
	Install(ctx context.Context) error

	// Uninstall unlinks the recipe and removes its prefix
	Uninstall(ctx context.Context) error

	// Link publishes the prefix into the shelf
	Link(ctx context.Context) error

	// Unlink removes this recipe's links from the shelf
	Unlink(ctx context.Context) error
}

// Operation names a lifecycle call
type Operation string

const (
	OpInstall   Operation = "install"
	OpUninstall Operation = "uninstall"
	OpLink      Operation = "link"
	OpUnlink    Operation = "unlink"
)

// Dispatch runs op against l
func Dispatch(ctx context.Context, l Lifecycle, op Operation) error {
	switch op {
	case OpInstall:
		return l.Install(ctx)
	case OpUninstall:
		return l.Uninstall(ctx)
	case OpLink:
		return l.Link(ctx)
	case OpUnlink:
		return l.Unlink(ctx)
	default:
		return fmt.Errorf("unknown operation: %s", op)
	}
}
