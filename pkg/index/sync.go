package index

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/arc-language/bake/pkg/logging"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// recipesSubdir is where an index repository keeps its recipe files
const recipesSubdir = "recipes"

// Syncer refreshes the local recipes directory from a git index
type Syncer struct {
	// Progress receives git's clone progress; nil discards it
	Progress io.Writer
}

// Sync shallow-clones url at branch and copies recipes/*.toml into
// recipesDir, returning how many files were copied. Local files that are
// not in the index are left alone.
func (s *Syncer) Sync(ctx context.Context, url, branch, recipesDir string) (int, error) {
	logger := logging.GetLogger("index")

	tempDir, err := os.MkdirTemp("", "bake-index-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	logger.Info().Str("url", url).Str("branch", branch).Msg("Step 1: Cloning recipe index")

	_, err = git.PlainCloneContext(ctx, tempDir, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         1,
		Progress:      s.Progress,
	})
	if err != nil {
		return 0, fmt.Errorf("git clone failed: %w", err)
	}

	logger.Info().Str("dir", recipesDir).Msg("Step 2: Copying recipes")
	n, err := copyRecipes(filepath.Join(tempDir, recipesSubdir), recipesDir)
	if err != nil {
		return n, err
	}

	logger.Info().Int("recipes", n).Msg("  ✓ Recipe index updated")
	return n, nil
}

// copyRecipes copies every *.toml file directly under src into dst
func copyRecipes(src, dst string) (int, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, fmt.Errorf("index has no %s directory: %w", recipesSubdir, err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return 0, fmt.Errorf("creating recipes directory: %w", err)
	}

	copied := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		if err := copyFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return copied, fmt.Errorf("copying %s: %w", entry.Name(), err)
		}
		copied++
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
