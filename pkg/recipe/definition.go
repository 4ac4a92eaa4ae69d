package recipe

import (
	"context"
	"fmt"

	"github.com/arc-language/bake/pkg/core"
)

// BuildFunc compiles the extracted sources and installs the results
// under the prefix exposed by the build context
type BuildFunc func(ctx context.Context, b *BuildContext) error

// Definition is everything bake knows about one buildable package
type Definition struct {
	Name     string
	Version  string
	URL      string
	Checksum string // Optional; bare hex, typed or SRI
	Homepage string
	Build    BuildFunc
	Source   string // "builtin" or the recipe file it was loaded from
}

// SourceBuiltin marks definitions compiled into bake
const SourceBuiltin = "builtin"

// Validate checks the fields the lifecycle cannot run without. A missing
// build procedure is reported later by Install as ErrNotImplemented.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", core.ErrInvalidRecipe)
	}
	if d.Version == "" {
		return fmt.Errorf("%w: %s has no version", core.ErrInvalidRecipe, d.Name)
	}
	if d.URL == "" {
		return fmt.Errorf("%w: %s has no source url", core.ErrInvalidRecipe, d.Name)
	}
	return nil
}

// Package converts the definition into its listing form
func (d Definition) Package() core.Package {
	return core.Package{
		Name:     d.Name,
		Version:  d.Version,
		Homepage: d.Homepage,
		URL:      d.URL,
		Source:   d.Source,
	}
}
