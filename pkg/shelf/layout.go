package shelf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arc-language/bake/pkg/core"
)

// Category is one of the shared shelf directories
type Category string

const (
	Bin     Category = "bin"
	Lib     Category = "lib"
	Include Category = "include"
)

// Categories lists every linked category in link order
var Categories = []Category{Bin, Lib, Include}

// stateDirName holds bake's own bookkeeping inside the shelf root
const stateDirName = ".bake"

// Layout derives every path of one recipe version. The prefix is
// Root/Name/Version, so versions never collide in the prefix but compete
// for the same shelf entries.
type Layout struct {
	Root    string
	Name    string
	Version string
}

// NewLayout validates the name and version and returns the layout
func NewLayout(root, name, version string) (Layout, error) {
	if root == "" {
		return Layout{}, fmt.Errorf("%w: empty shelf root", core.ErrInvalidRecipe)
	}
	if err := validComponent("name", name); err != nil {
		return Layout{}, err
	}
	if err := validComponent("version", version); err != nil {
		return Layout{}, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, fmt.Errorf("resolving shelf root: %w", err)
	}
	return Layout{Root: abs, Name: name, Version: version}, nil
}

func validComponent(field, v string) error {
	if v == "" {
		return fmt.Errorf("%w: %s is required", core.ErrInvalidRecipe, field)
	}
	if v == "." || v == ".." || strings.ContainsAny(v, `/\`) || strings.HasPrefix(v, ".") {
		return fmt.Errorf("%w: %s %q is not a valid path component", core.ErrInvalidRecipe, field, v)
	}
	return nil
}

// Prefix is the install prefix handed to build procedures
func (l Layout) Prefix() string {
	return filepath.Join(l.Root, l.Name, l.Version)
}

// PrefixDir returns prefix/<cat> without creating it
func (l Layout) PrefixDir(cat Category) string {
	return filepath.Join(l.Prefix(), string(cat))
}

// ShelfDir returns root/<cat> without creating it
func (l Layout) ShelfDir(cat Category) string {
	return filepath.Join(l.Root, string(cat))
}

// EnsurePrefixDir creates prefix/<cat> on first access
func (l Layout) EnsurePrefixDir(cat Category) (string, error) {
	return ensureDir(l.PrefixDir(cat))
}

// EnsureShelfDir creates root/<cat> on first access
func (l Layout) EnsureShelfDir(cat Category) (string, error) {
	return ensureDir(l.ShelfDir(cat))
}

// StateDir is where the link manifest and the lock file live
func (l Layout) StateDir() string {
	return StateDir(l.Root)
}

// StateDir returns the bookkeeping directory of the shelf at root
func StateDir(root string) string {
	return filepath.Join(root, stateDirName)
}

// InstalledVersions lists the versions of name that have a prefix under
// root. Shelf links living in the same directory are not versions.
func InstalledVersions(root, name string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	var versions []string
	for _, e := range entries {
		if e.Type()&os.ModeSymlink != 0 || !e.IsDir() {
			continue
		}
		versions = append(versions, e.Name())
	}
	return versions, nil
}

func ensureDir(p string) (string, error) {
	if err := os.MkdirAll(p, 0755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", p, err)
	}
	return p, nil
}
