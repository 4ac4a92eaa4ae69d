package core

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailure indicates the source archive could not be downloaded
	ErrFetchFailure = errors.New("fetch failed")

	// ErrUnsupportedFormat indicates the archive suffix is not recognized
	ErrUnsupportedFormat = errors.New("unsupported archive format")

	// ErrExtractionInvariant indicates extraction produced no usable source root
	ErrExtractionInvariant = errors.New("extraction invariant violated")

	// ErrBuildFailure indicates an external command exited non-zero
	ErrBuildFailure = errors.New("build failed")

	// ErrNotImplemented indicates a recipe has no build procedure
	ErrNotImplemented = errors.New("recipe does not implement install")

	// ErrChecksumMismatch indicates the fetched archive does not match the declared checksum
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrUnknownRecipe indicates no recipe is registered under the requested name
	ErrUnknownRecipe = errors.New("unknown recipe")

	// ErrInvalidRecipe indicates a recipe definition is incomplete or malformed
	ErrInvalidRecipe = errors.New("invalid recipe")

	// ErrShelfLocked indicates another invocation holds the shelf lock
	ErrShelfLocked = errors.New("shelf is locked by another bake process")
)

// Stage names the lifecycle step an error came from.
type Stage string

const (
	StageResolve   Stage = "resolve"
	StageFetch     Stage = "fetch"
	StageExtract   Stage = "extract"
	StageBuild     Stage = "build"
	StageLink      Stage = "link"
	StageUnlink    Stage = "unlink"
	StageUninstall Stage = "uninstall"
)

// Error wraps an error with the recipe and stage it failed in
type Error struct {
	Op     string // Lifecycle operation (install, uninstall, link, unlink)
	Recipe string // Recipe name if applicable
	Stage  Stage  // Stage within the operation
	Err    error  // Underlying error
}

func (e *Error) Error() string {
	op := e.Op
	if e.Recipe != "" {
		op = fmt.Sprintf("%s %s", op, e.Recipe)
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s [%s]: %v", op, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v", op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns nil when err is nil, otherwise an *Error. An err that is
// already an *Error for the same recipe is returned unchanged.
func Wrap(op, recipe string, stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) && existing.Recipe == recipe {
		return err
	}
	return &Error{Op: op, Recipe: recipe, Stage: stage, Err: err}
}
