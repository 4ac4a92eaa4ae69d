package bake

import "github.com/arc-language/bake/pkg/core"

// Error carries the operation, recipe and lifecycle stage of a failure
type Error = core.Error

// Stage names the lifecycle step an Error came from
type Stage = core.Stage

var (
	ErrFetchFailure        = core.ErrFetchFailure
	ErrUnsupportedFormat   = core.ErrUnsupportedFormat
	ErrExtractionInvariant = core.ErrExtractionInvariant
	ErrBuildFailure        = core.ErrBuildFailure
	ErrNotImplemented      = core.ErrNotImplemented
	ErrChecksumMismatch    = core.ErrChecksumMismatch
	ErrUnknownRecipe       = core.ErrUnknownRecipe
	ErrInvalidRecipe       = core.ErrInvalidRecipe
	ErrShelfLocked         = core.ErrShelfLocked
)
