package recipe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arc-language/bake/pkg/archive"
	"github.com/arc-language/bake/pkg/core"
	"github.com/arc-language/bake/pkg/fetch"
	"github.com/arc-language/bake/pkg/logging"
	"github.com/arc-language/bake/pkg/runner"
	"github.com/arc-language/bake/pkg/shelf"
	"github.com/rs/zerolog"
)

// State tracks how far a recipe got in the current invocation
type State int

const (
	StateCreated State = iota
	StateSourceFetched
	StateBuilt
	StateLinked
	StateUnlinked
	StateUninstalled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSourceFetched:
		return "source-fetched"
	case StateBuilt:
		return "built"
	case StateLinked:
		return "linked"
	case StateUnlinked:
		return "unlinked"
	case StateUninstalled:
		return "uninstalled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Env holds the collaborators shared by every recipe of one invocation
type Env struct {
	ShelfRoot string
	SourceDir string // Extracted trees go to SourceDir/<name>
	Fetcher   *fetch.Fetcher
	Extractor *archive.Extractor
	Runner    runner.Runner
	Linker    *shelf.Linker
}

// Recipe runs the lifecycle of one package version
type Recipe struct {
	def    Definition
	layout shelf.Layout
	env    Env
	state  State
	logger zerolog.Logger
}

var _ core.Lifecycle = (*Recipe)(nil)

// New binds a definition to the shelf described by env
func New(def Definition, env Env) (*Recipe, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	layout, err := shelf.NewLayout(env.ShelfRoot, def.Name, def.Version)
	if err != nil {
		return nil, err
	}
	if env.Runner == nil {
		env.Runner = runner.NewExecRunner()
	}
	if env.Linker == nil {
		env.Linker = shelf.NewLinker(env.Runner)
	}
	if env.Extractor == nil {
		env.Extractor = archive.NewExtractor(nil)
	}
	if env.Fetcher == nil {
		return nil, fmt.Errorf("recipe %s: no fetcher configured", def.Name)
	}
	return &Recipe{
		def:    def,
		layout: layout,
		env:    env,
		state:  StateCreated,
		logger: logging.GetLogger("recipe").With().Str("recipe", def.Name).Logger(),
	}, nil
}

// Name returns the lowercase recipe name
func (r *Recipe) Name() string { return r.def.Name }

// Version returns the version this recipe installs
func (r *Recipe) Version() string { return r.def.Version }

// Prefix returns shelf/<name>/<version>
func (r *Recipe) Prefix() string { return r.layout.Prefix() }

// Layout returns the recipe's shelf paths
func (r *Recipe) Layout() shelf.Layout { return r.layout }

// State returns the lifecycle state reached so far
func (r *Recipe) State() State { return r.state }

// Definition returns the definition the recipe was built from
func (r *Recipe) Definition() Definition { return r.def }

// Install fetches, extracts and builds the sources into the prefix, then
// links the prefix into the shelf. An existing prefix is unlinked and
// replaced, so a failed install can simply be retried.
func (r *Recipe) Install(ctx context.Context) error {
	const op = "install"

	if r.def.Build == nil {
		return core.Wrap(op, r.def.Name, core.StageBuild, core.ErrNotImplemented)
	}

	r.logger.Info().Str("version", r.def.Version).Msg("Step 1: Fetching source")
	archivePath, err := r.env.Fetcher.FetchVerified(ctx, r.def.URL, r.def.Checksum)
	if err != nil {
		return core.Wrap(op, r.def.Name, core.StageFetch, err)
	}
	r.state = StateSourceFetched
	r.logger.Info().Str("archive", archivePath).Msg("  ✓ Source available")

	r.logger.Info().Msg("Step 2: Extracting source")
	srcDir := filepath.Join(r.env.SourceDir, r.def.Name)
	if err := os.RemoveAll(srcDir); err != nil {
		return core.Wrap(op, r.def.Name, core.StageExtract, fmt.Errorf("clearing old source tree: %w", err))
	}
	sourceRoot, err := r.env.Extractor.Extract(archivePath, srcDir)
	if err != nil {
		return core.Wrap(op, r.def.Name, core.StageExtract, err)
	}
	r.logger.Info().Str("root", sourceRoot).Msg("  ✓ Source extracted")

	r.logger.Info().Str("prefix", r.Prefix()).Msg("Step 3: Preparing prefix")
	if err := r.clearPrefix(ctx); err != nil {
		return core.Wrap(op, r.def.Name, core.StageBuild, err)
	}
	if err := os.MkdirAll(r.Prefix(), 0755); err != nil {
		return core.Wrap(op, r.def.Name, core.StageBuild, fmt.Errorf("creating prefix: %w", err))
	}

	r.logger.Info().Msg("Step 4: Building")
	if err := r.def.Build(ctx, NewBuildContext(sourceRoot, r.layout, r.env.Runner)); err != nil {
		return core.Wrap(op, r.def.Name, core.StageBuild, err)
	}
	r.state = StateBuilt
	r.logger.Info().Msg("  ✓ Build complete")

	r.logger.Info().Msg("Step 5: Linking into shelf")
	if err := r.link(ctx); err != nil {
		return core.Wrap(op, r.def.Name, core.StageLink, err)
	}

	r.logger.Info().Str("version", r.def.Version).Msg("✓ Installed")
	return nil
}

// clearPrefix unlinks and removes a prefix left by an earlier install
func (r *Recipe) clearPrefix(ctx context.Context) error {
	if _, err := os.Stat(r.Prefix()); os.IsNotExist(err) {
		return nil
	}
	r.logger.Info().Msg("  Existing prefix found, replacing it")
	if _, err := r.env.Linker.Unlink(ctx, r.layout); err != nil {
		return fmt.Errorf("unlinking previous install: %w", err)
	}
	if err := os.RemoveAll(r.Prefix()); err != nil {
		return fmt.Errorf("removing previous install: %w", err)
	}
	return nil
}

// Uninstall removes the recipe's shelf links and its prefix. Uninstalling
// a version that is not installed is a no-op.
func (r *Recipe) Uninstall(ctx context.Context) error {
	const op = "uninstall"

	r.logger.Info().Msg("Step 1: Unlinking from shelf")
	if _, err := r.env.Linker.Unlink(ctx, r.layout); err != nil {
		return core.Wrap(op, r.def.Name, core.StageUnlink, err)
	}
	r.state = StateUnlinked

	r.logger.Info().Str("prefix", r.Prefix()).Msg("Step 2: Removing prefix")
	if _, err := os.Stat(r.Prefix()); os.IsNotExist(err) {
		r.logger.Info().Msg("  Not installed, nothing to remove")
	} else if err := os.RemoveAll(r.Prefix()); err != nil {
		return core.Wrap(op, r.def.Name, core.StageUninstall, fmt.Errorf("removing prefix: %w", err))
	}

	// shelf/<name> goes away with its last version; shelf links may share
	// the directory, so only an empty one is removed.
	nameDir := filepath.Dir(r.Prefix())
	if err := os.Remove(nameDir); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.Debug().Err(err).Str("dir", nameDir).Msg("Keeping non-empty recipe directory")
	}

	r.state = StateUninstalled
	r.logger.Info().Msg("✓ Uninstalled")
	return nil
}

// Link publishes the prefix into the shelf
func (r *Recipe) Link(ctx context.Context) error {
	return core.Wrap("link", r.def.Name, core.StageLink, r.link(ctx))
}

func (r *Recipe) link(ctx context.Context) error {
	if _, err := r.env.Linker.Link(ctx, r.layout); err != nil {
		return err
	}
	r.state = StateLinked
	return nil
}

// Unlink removes the shelf links that point into the prefix
func (r *Recipe) Unlink(ctx context.Context) error {
	if _, err := r.env.Linker.Unlink(ctx, r.layout); err != nil {
		return core.Wrap("unlink", r.def.Name, core.StageUnlink, err)
	}
	r.state = StateUnlinked
	return nil
}
