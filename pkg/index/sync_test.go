package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyRecipes(t *testing.T) {
	src := filepath.Join(t.TempDir(), "recipes")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "zlib.toml"), []byte(`version = "1.3.1"`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "hello.toml"), []byte(`version = "2.12"`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "README.md"), []byte("# recipes"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "skip.toml"), []byte(""), 0644))

	dst := filepath.Join(t.TempDir(), "config", "recipes")
	require.NoError(t, os.MkdirAll(dst, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "zlib.toml"), []byte("stale"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "local.toml"), []byte("mine"), 0644))

	n, err := copyRecipes(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(filepath.Join(dst, "zlib.toml"))
	require.NoError(t, err)
	assert.Equal(t, `version = "1.3.1"`, string(data))

	assert.FileExists(t, filepath.Join(dst, "local.toml"))
	assert.NoFileExists(t, filepath.Join(dst, "README.md"))
	assert.NoFileExists(t, filepath.Join(dst, "skip.toml"))
}

func TestCopyRecipes_MissingSource(t *testing.T) {
	_, err := copyRecipes(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	assert.Error(t, err)
}

func TestSync_CloneFailure(t *testing.T) {
	recipesDir := filepath.Join(t.TempDir(), "recipes")

	s := &Syncer{}
	_, err := s.Sync(context.Background(), filepath.Join(t.TempDir(), "no-such-repo"), "main", recipesDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git clone failed")
	assert.NoDirExists(t, recipesDir)
}
