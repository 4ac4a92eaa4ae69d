package recipe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/arc-language/bake/pkg/core"
	"github.com/arc-language/bake/pkg/runner"
)

// File is the on-disk form of a recipe, <name>.toml:
//
//	version  = "1.3.1"
//	url      = "https://zlib.net/zlib-1.3.1.tar.gz"
//	checksum = "sha256:9a93b2b7..."
//
//	[[steps]]
//	run = "./configure --prefix=$PREFIX"
//
//	[[steps]]
//	run = "make install"
type File struct {
	Name     string `toml:"name"`
	Version  string `toml:"version"`
	URL      string `toml:"url"`
	Checksum string `toml:"checksum"`
	Homepage string `toml:"homepage"`
	Steps    []Step `toml:"steps"`
}

// Step is one command of a recipe file. A failing step always fails the
// build.
type Step struct {
	Run string `toml:"run"`
	Dir string `toml:"dir"` // Relative to the source root
}

// ParseFile reads and validates a recipe file. The recipe name defaults to
// the file name without its extension.
func ParseFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("reading recipe: %w", err)
	}

	var f File
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return Definition{}, fmt.Errorf("%w: %s: %v", core.ErrInvalidRecipe, filepath.Base(path), err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Definition{}, fmt.Errorf("%w: %s: unknown key %q", core.ErrInvalidRecipe, filepath.Base(path), undecoded[0].String())
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if len(f.Steps) == 0 {
		return Definition{}, fmt.Errorf("%w: %s has no steps", core.ErrInvalidRecipe, filepath.Base(path))
	}
	for i, s := range f.Steps {
		if _, err := runner.Fields(s.Run, nil); err != nil {
			return Definition{}, fmt.Errorf("%s step %d: %w", filepath.Base(path), i+1, err)
		}
	}

	def := Definition{
		Name:     strings.ToLower(f.Name),
		Version:  f.Version,
		URL:      f.URL,
		Checksum: f.Checksum,
		Homepage: f.Homepage,
		Build:    stepsBuild(f.Steps),
		Source:   path,
	}
	if err := def.Validate(); err != nil {
		return Definition{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return def, nil
}

func stepsBuild(steps []Step) BuildFunc {
	return func(ctx context.Context, b *BuildContext) error {
		vars, err := b.Vars()
		if err != nil {
			return err
		}
		for i, s := range steps {
			argv, err := runner.Fields(s.Run, vars)
			if err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
			cmd := runner.Command{
				Name: argv[0],
				Args: argv[1:],
				Dir:  s.Dir,
			}
			if err := b.Exec(ctx, cmd); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		return nil
	}
}

// LoadDir registers every *.toml recipe in dir and returns how many were
// loaded. A missing directory loads nothing. A recipe file replaces a
// built-in of the same name. Files that fail to parse are skipped with a
// warning; looking up the name of such a file returns its parse error.
func (r *Registry) LoadDir(dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.toml"))
	if err != nil {
		return 0, fmt.Errorf("listing recipes: %w", err)
	}
	sort.Strings(paths)

	loaded := 0
	for _, path := range paths {
		def, err := ParseFile(path)
		if err != nil {
			name := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
			r.logger.Warn().Err(err).Str("file", path).Msg("Skipping invalid recipe file")
			r.invalid[name] = err
			continue
		}
		delete(r.invalid, def.Name)
		if r.Has(def.Name) {
			r.logger.Info().
				Str("recipe", def.Name).
				Str("file", path).
				Msg("Recipe file overrides built-in recipe")
		}
		d := def
		r.Register(def.Name, func() Definition { return d })
		loaded++
	}

	r.logger.Debug().Str("dir", dir).Int("recipes", loaded).Msg("Loaded recipe files")
	return loaded, nil
}
