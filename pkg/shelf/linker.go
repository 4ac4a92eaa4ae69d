package shelf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arc-language/bake/pkg/logging"
	"github.com/arc-language/bake/pkg/runner"
	"github.com/rs/zerolog"
)

// Linker publishes a prefix into the shared shelf directories
type Linker struct {
	runner      runner.Runner
	skipOnError bool
	logger      zerolog.Logger
}

// NewLinker creates a linker that tolerates individual link failures
func NewLinker(r runner.Runner) *Linker {
	if r == nil {
		r = runner.NewExecRunner()
	}
	return &Linker{
		runner:      r,
		skipOnError: true,
		logger:      logging.GetLogger("shelf"),
	}
}

// SetSkipOnError controls whether a failed link aborts the remaining ones
func (l *Linker) SetSkipOnError(skip bool) {
	l.skipOnError = skip
}

// Link creates shelf/<cat>/<entry> for every top-level entry of
// prefix/<cat> and returns the links it verified, relative to the shelf root.
// Only links to another version of the same recipe are replaced; any other
// existing shelf entry is a collision.
func (l *Linker) Link(ctx context.Context, layout Layout) ([]string, error) {
	manifest, err := LoadManifest(layout.Root)
	if err != nil {
		return nil, err
	}

	var linked []string
	for _, cat := range Categories {
		entries, err := readEntries(layout.PrefixDir(cat))
		if err != nil {
			return linked, err
		}
		if len(entries) == 0 {
			continue
		}

		shelfDir, err := layout.EnsureShelfDir(cat)
		if err != nil {
			return linked, err
		}

		l.logger.Debug().Str("category", string(cat)).Int("entries", len(entries)).Msg("Linking category")

		for _, entry := range entries {
			rel := string(cat) + "/" + entry.Name()
			target := filepath.Join(layout.PrefixDir(cat), entry.Name())
			link := filepath.Join(shelfDir, entry.Name())

			ok, err := l.linkOne(ctx, layout, manifest, rel, target, link, isDirEntry(target, entry))
			if err != nil {
				manifest.Record(layout.Name, layout.Version, linked)
				if serr := manifest.Save(); serr != nil {
					l.logger.Warn().Err(serr).Msg("Could not save link manifest")
				}
				return linked, fmt.Errorf("linking %s: %w", rel, err)
			}
			if ok {
				linked = append(linked, rel)
			}
		}
	}

	manifest.Record(layout.Name, layout.Version, linked)
	if err := manifest.Save(); err != nil {
		return linked, err
	}

	l.logger.Info().
		Str("recipe", layout.Name).
		Str("version", layout.Version).
		Int("links", len(linked)).
		Msg("  ✓ Linked into shelf")
	return linked, nil
}

func (l *Linker) linkOne(ctx context.Context, layout Layout, manifest *Manifest, rel, target, link string, isDir bool) (bool, error) {
	if info, err := os.Lstat(link); err == nil {
		dest, rerr := readlinkAbs(link)
		switch {
		case rerr != nil && info.Mode()&os.ModeSymlink == 0:
			return l.fail(fmt.Errorf("%s exists and is not a link", link), rel)
		case rerr == nil && samePath(dest, target):
			l.logger.Debug().Str("link", rel).Msg("Already linked")
			return true, nil
		case rerr == nil && hasPathPrefix(dest, filepath.Join(layout.Root, layout.Name)):
			l.logger.Info().Str("link", rel).Str("previous", dest).Msg("Replacing link to another version")
			if err := os.Remove(link); err != nil {
				return l.fail(fmt.Errorf("removing previous link: %w", err), rel)
			}
			manifest.Drop(rel)
		default:
			return l.fail(fmt.Errorf("%s already links to %s", link, dest), rel)
		}
	}

	cmd := linkCommand(target, link, isDir)
	cmd.SkipOnError = l.skipOnError
	if err := l.runner.Run(ctx, cmd); err != nil {
		return false, err
	}

	dest, err := readlinkAbs(link)
	if err != nil || !samePath(dest, target) {
		return l.fail(fmt.Errorf("link %s was not created", link), rel)
	}
	l.logger.Debug().Str("link", rel).Str("target", target).Msg("Linked")
	return true, nil
}

// fail applies the skip-on-error policy to a failure that did not come
// from the runner
func (l *Linker) fail(err error, rel string) (bool, error) {
	if !l.skipOnError {
		return false, err
	}
	l.logger.Warn().Err(err).Str("link", rel).Msg("Skipping link")
	return false, nil
}

// Unlink removes every shelf link that resolves into the layout's prefix,
// both those recorded in the manifest and any found by scanning the shelf
// categories. Links owned by other prefixes are left alone.
func (l *Linker) Unlink(ctx context.Context, layout Layout) (int, error) {
	manifest, err := LoadManifest(layout.Root)
	if err != nil {
		return 0, err
	}

	candidates := make(map[string]bool)
	for _, rel := range manifest.Entries(layout.Name, layout.Version) {
		candidates[rel] = true
	}
	for _, cat := range Categories {
		entries, err := readEntries(layout.ShelfDir(cat))
		if err != nil {
			return 0, err
		}
		for _, e := range entries {
			candidates[string(cat)+"/"+e.Name()] = true
		}
	}

	rels := make([]string, 0, len(candidates))
	for rel := range candidates {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	prefix := layout.Prefix()
	removed := 0
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		link := filepath.Join(layout.Root, filepath.FromSlash(rel))
		dest, err := readlinkAbs(link)
		if err != nil {
			continue
		}
		if !hasPathPrefix(dest, prefix) {
			continue
		}
		if err := os.Remove(link); err != nil {
			return removed, fmt.Errorf("removing link %s: %w", rel, err)
		}
		l.logger.Debug().Str("link", rel).Msg("Unlinked")
		removed++
	}

	manifest.Forget(layout.Name, layout.Version)
	if err := manifest.Save(); err != nil {
		return removed, err
	}

	l.logger.Info().
		Str("recipe", layout.Name).
		Str("version", layout.Version).
		Int("links", removed).
		Msg("  ✓ Unlinked from shelf")
	return removed, nil
}

// readEntries lists dir, treating a missing directory as empty
func readEntries(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	return entries, nil
}

// isDirEntry follows links inside the prefix so a linked directory still
// gets the directory primitive
func isDirEntry(path string, e os.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// readlinkAbs returns the absolute target of link. Relative targets are
// resolved against the link's directory.
func readlinkAbs(link string) (string, error) {
	dest, err := os.Readlink(link)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(filepath.Dir(link), dest)
	}
	return filepath.Clean(dest), nil
}

func samePath(a, b string) bool {
	return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
}

// hasPathPrefix reports whether p is prefix or lies below it. The match is
// case-insensitive and stops at path separators, so /shelf/lib/1.0 does
// not own /shelf/lib/1.0.1.
func hasPathPrefix(p, prefix string) bool {
	p = filepath.Clean(p)
	prefix = filepath.Clean(prefix)
	if len(p) < len(prefix) || !strings.EqualFold(p[:len(prefix)], prefix) {
		return false
	}
	if len(p) == len(prefix) {
		return true
	}
	return p[len(prefix)] == filepath.Separator || strings.HasSuffix(prefix, string(filepath.Separator))
}
