package recipe

import (
	"context"
	"path/filepath"

	"github.com/arc-language/bake/pkg/runner"
	"github.com/arc-language/bake/pkg/shelf"
)

// BuildContext is handed to a build procedure. Commands run in SourceRoot;
// the process working directory is never changed.
type BuildContext struct {
	SourceRoot string
	layout     shelf.Layout
	runner     runner.Runner
}

// NewBuildContext creates the context Install passes to a build procedure
func NewBuildContext(sourceRoot string, layout shelf.Layout, r runner.Runner) *BuildContext {
	return &BuildContext{SourceRoot: sourceRoot, layout: layout, runner: r}
}

// Name returns the recipe name
func (b *BuildContext) Name() string { return b.layout.Name }

// Version returns the version being built
func (b *BuildContext) Version() string { return b.layout.Version }

// Prefix returns the install prefix, shelf/<name>/<version>
func (b *BuildContext) Prefix() string { return b.layout.Prefix() }

// Bin returns prefix/bin, creating it on first use
func (b *BuildContext) Bin() (string, error) { return b.layout.EnsurePrefixDir(shelf.Bin) }

// Lib returns prefix/lib, creating it on first use
func (b *BuildContext) Lib() (string, error) { return b.layout.EnsurePrefixDir(shelf.Lib) }

// Include returns prefix/include, creating it on first use
func (b *BuildContext) Include() (string, error) { return b.layout.EnsurePrefixDir(shelf.Include) }

// System runs name with args in the source root. A non-zero exit fails
// the build.
func (b *BuildContext) System(ctx context.Context, name string, args ...string) error {
	return b.Exec(ctx, runner.Command{Name: name, Args: args})
}

// Exec runs cmd with its directory resolved against the source root. Build
// commands never skip errors.
func (b *BuildContext) Exec(ctx context.Context, cmd runner.Command) error {
	cmd.SkipOnError = false
	switch {
	case cmd.Dir == "":
		cmd.Dir = b.SourceRoot
	case !filepath.IsAbs(cmd.Dir):
		cmd.Dir = filepath.Join(b.SourceRoot, cmd.Dir)
	}
	return b.runner.Run(ctx, cmd)
}

// Vars returns the variables available to recipe file steps. Category
// directories are created so steps can copy into them directly.
func (b *BuildContext) Vars() (map[string]string, error) {
	bin, err := b.Bin()
	if err != nil {
		return nil, err
	}
	lib, err := b.Lib()
	if err != nil {
		return nil, err
	}
	include, err := b.Include()
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"PREFIX":  b.Prefix(),
		"BIN":     bin,
		"LIB":     lib,
		"INCLUDE": include,
		"SOURCE":  b.SourceRoot,
		"NAME":    b.Name(),
		"VERSION": b.Version(),
	}, nil
}
