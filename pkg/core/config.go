package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is used for XDG directory names and the env var prefix
	AppName = "bake"

	// EnvPrefix prefixes every environment override, e.g. BAKE_SHELF_ROOT
	EnvPrefix = "BAKE_"

	// DefaultIndexURL is the git repository holding shared recipe files
	DefaultIndexURL = "https://github.com/arc-language/bake-recipes"

	// DefaultIndexBranch is the branch cloned by sync
	DefaultIndexBranch = "main"
)

// Config holds bake configuration
type Config struct {
	ShelfRoot   string        `koanf:"shelf_root" yaml:"shelf_root"`
	CachePath   string        `koanf:"cache_path" yaml:"cache_path"`
	RecipesPath string        `koanf:"recipes_path" yaml:"recipes_path"`
	IndexURL    string        `koanf:"index_url" yaml:"index_url"`
	IndexBranch string        `koanf:"index_branch" yaml:"index_branch"`
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout"`
	Verbosity   int           `koanf:"verbosity" yaml:"verbosity"`
	Debug       bool          `koanf:"debug" yaml:"debug"`
}

// DefaultConfig returns a configuration rooted in the XDG data and cache dirs
func DefaultConfig() *Config {
	return &Config{
		ShelfRoot:   filepath.Join(xdg.DataHome, AppName, "shelf"),
		CachePath:   filepath.Join(xdg.CacheHome, AppName),
		RecipesPath: filepath.Join(xdg.ConfigHome, AppName, "recipes"),
		IndexURL:    DefaultIndexURL,
		IndexBranch: DefaultIndexBranch,
		Timeout:     0, // no limit
		Verbosity:   0,
		Debug:       false,
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/bake/config.yaml
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// LoadConfig layers defaults, the YAML file at path and BAKE_* environment
// variables, in that order. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"shelf_root":   defaults.ShelfRoot,
		"cache_path":   defaults.CachePath,
		"recipes_path": defaults.RecipesPath,
		"index_url":    defaults.IndexURL,
		"index_branch": defaults.IndexBranch,
		"timeout":      defaults.Timeout.String(),
		"verbosity":    defaults.Verbosity,
		"debug":        defaults.Debug,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// BAKE_SHELF_ROOT -> shelf_root; keys are flat so "_" is kept.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.ShelfRoot = expandHome(cfg.ShelfRoot)
	cfg.CachePath = expandHome(cfg.CachePath)
	cfg.RecipesPath = expandHome(cfg.RecipesPath)

	return &cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate checks the paths bake cannot work without
func (c *Config) Validate() error {
	if c.ShelfRoot == "" {
		return fmt.Errorf("shelf_root is required")
	}
	if c.CachePath == "" {
		return fmt.Errorf("cache_path is required")
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
