// Package bake builds native libraries from source and publishes them into
// a shared shelf of bin, lib and include directories.
package bake

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arc-language/bake/pkg/archive"
	"github.com/arc-language/bake/pkg/core"
	"github.com/arc-language/bake/pkg/fetch"
	"github.com/arc-language/bake/pkg/index"
	"github.com/arc-language/bake/pkg/logging"
	"github.com/arc-language/bake/pkg/recipe"
	"github.com/arc-language/bake/pkg/recipes"
	"github.com/arc-language/bake/pkg/runner"
	"github.com/arc-language/bake/pkg/shelf"
	"github.com/rs/zerolog"
)

// Re-export core types for convenience
type (
	Config     = core.Config
	Package    = core.Package
	Operation  = core.Operation
	Definition = recipe.Definition
)

// Re-export lifecycle operations
const (
	OpInstall   = core.OpInstall
	OpUninstall = core.OpUninstall
	OpLink      = core.OpLink
	OpUnlink    = core.OpUnlink
)

// DefaultConfig returns a configuration with XDG-based defaults
func DefaultConfig() *Config {
	return core.DefaultConfig()
}

// LoadConfig reads configuration from path, the environment and defaults
func LoadConfig(path string) (*Config, error) {
	return core.LoadConfig(path)
}

// Option customizes a Manager
type Option func(*Manager)

// WithRunner replaces the command runner used for builds and links
func WithRunner(r runner.Runner) Option {
	return func(m *Manager) {
		m.runner = r
	}
}

// WithRegistry replaces the built-in registry. Recipe files from the
// configured recipes directory are still loaded into it.
func WithRegistry(reg *recipe.Registry) Option {
	return func(m *Manager) {
		m.registry = reg
	}
}

// Manager resolves recipes and runs one lifecycle operation at a time
// against the configured shelf
type Manager struct {
	config   *Config
	registry *recipe.Registry
	runner   runner.Runner
	env      recipe.Env
	syncer   *index.Syncer
	logger   zerolog.Logger
}

// NewManager creates a manager for cfg. A nil cfg uses DefaultConfig.
func NewManager(cfg *Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	m := &Manager{
		config: cfg,
		syncer: &index.Syncer{},
		logger: logging.GetLogger("manager"),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.registry == nil {
		m.registry = recipe.NewRegistry()
		recipes.RegisterBuiltins(m.registry)
	}
	if _, err := m.registry.LoadDir(cfg.RecipesPath); err != nil {
		return nil, fmt.Errorf("loading recipes: %w", err)
	}

	if m.runner == nil {
		m.runner = runner.NewExecRunner()
	}

	m.env = recipe.Env{
		ShelfRoot: cfg.ShelfRoot,
		SourceDir: filepath.Join(cfg.CachePath, "src"),
		Fetcher:   fetch.NewFetcher(filepath.Join(cfg.CachePath, "downloads"), fetch.NewClientWithTimeout(cfg.Timeout)),
		Extractor: archive.NewExtractor(nil),
		Runner:    m.runner,
		Linker:    shelf.NewLinker(m.runner),
	}

	m.logger.Debug().
		Str("shelf", cfg.ShelfRoot).
		Str("cache", cfg.CachePath).
		Int("recipes", len(m.registry.Names())).
		Msg("Manager ready")

	return m, nil
}

// Config returns the manager's configuration
func (m *Manager) Config() *Config {
	return m.config
}

// Registry returns the recipe registry
func (m *Manager) Registry() *recipe.Registry {
	return m.registry
}

// Recipe resolves name into a recipe bound to the shelf
func (m *Manager) Recipe(name string) (*recipe.Recipe, error) {
	def, err := m.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	return recipe.New(def, m.env)
}

// Run resolves name and runs op while holding the shelf lock
func (m *Manager) Run(ctx context.Context, op Operation, name string) error {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return core.Wrap(string(op), "", core.StageResolve, fmt.Errorf("%w: recipe name is required", core.ErrInvalidRecipe))
	}

	lock, err := shelf.Acquire(m.config.ShelfRoot)
	if err != nil {
		return core.Wrap(string(op), key, core.StageResolve, err)
	}
	defer lock.Release()

	rec, err := m.Recipe(key)
	if err != nil {
		return core.Wrap(string(op), key, core.StageResolve, err)
	}

	done := logging.LogOperationStart(m.logger, string(op)+" "+key)
	defer done()

	return core.Dispatch(ctx, rec, op)
}

// Install builds name and links it into the shelf
func (m *Manager) Install(ctx context.Context, name string) error {
	return m.Run(ctx, OpInstall, name)
}

// Uninstall unlinks name and removes its prefix
func (m *Manager) Uninstall(ctx context.Context, name string) error {
	return m.Run(ctx, OpUninstall, name)
}

// Link publishes an installed prefix into the shelf
func (m *Manager) Link(ctx context.Context, name string) error {
	return m.Run(ctx, OpLink, name)
}

// Unlink removes name's links from the shelf, keeping the prefix
func (m *Manager) Unlink(ctx context.Context, name string) error {
	return m.Run(ctx, OpUnlink, name)
}

// List describes every known recipe with its install state
func (m *Manager) List() ([]Package, error) {
	manifest, err := shelf.LoadManifest(m.config.ShelfRoot)
	if err != nil {
		return nil, err
	}

	names := m.registry.Names()
	pkgs := make([]Package, 0, len(names))
	for _, name := range names {
		pkg, err := m.describe(name, manifest)
		if err != nil {
			m.logger.Warn().Err(err).Str("recipe", name).Msg("Skipping recipe")
			continue
		}
		pkgs = append(pkgs, *pkg)
	}
	return pkgs, nil
}

// Info describes a single recipe
func (m *Manager) Info(name string) (*Package, error) {
	manifest, err := shelf.LoadManifest(m.config.ShelfRoot)
	if err != nil {
		return nil, err
	}
	return m.describe(name, manifest)
}

func (m *Manager) describe(name string, manifest *shelf.Manifest) (*Package, error) {
	def, err := m.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	pkg := def.Package()

	installed, err := shelf.InstalledVersions(m.config.ShelfRoot, def.Name)
	if err != nil {
		return nil, err
	}
	pkg.Installed = installed
	pkg.Links = manifest.Count(def.Name, def.Version)
	return &pkg, nil
}

// Sync refreshes recipe files from the configured git index and reloads
// them into the registry
func (m *Manager) Sync(ctx context.Context) (int, error) {
	n, err := m.syncer.Sync(ctx, m.config.IndexURL, m.config.IndexBranch, m.config.RecipesPath)
	if err != nil {
		return 0, fmt.Errorf("syncing recipe index: %w", err)
	}
	if _, err := m.registry.LoadDir(m.config.RecipesPath); err != nil {
		return n, fmt.Errorf("loading recipes: %w", err)
	}
	return n, nil
}
