package shelf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/arc-language/bake/pkg/core"
	"github.com/arc-language/bake/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// symlinkRunner creates links in-process and fails for the link names in fail
type symlinkRunner struct {
	fail  map[string]bool
	calls []string
}

func (r *symlinkRunner) Run(_ context.Context, cmd runner.Command) error {
	target, link := cmd.Args[len(cmd.Args)-2], cmd.Args[len(cmd.Args)-1]
	r.calls = append(r.calls, filepath.Base(link))
	if r.fail[filepath.Base(link)] {
		if cmd.SkipOnError {
			return nil
		}
		return errors.New("ln: File exists")
	}
	return os.Symlink(target, link)
}

func requireSymlinks(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses unix symlinks")
	}
}

func writePrefixFile(t *testing.T, layout Layout, cat Category, name string) string {
	t.Helper()
	dir, err := layout.EnsurePrefixDir(cat)
	require.NoError(t, err)
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(name), 0755))
	return p
}

func newLayout(t *testing.T, root, name, version string) Layout {
	t.Helper()
	layout, err := NewLayout(root, name, version)
	require.NoError(t, err)
	return layout
}

func assertLinksTo(t *testing.T, link, target string) {
	t.Helper()
	dest, err := os.Readlink(link)
	require.NoError(t, err, "%s should be a link", link)
	assert.Equal(t, target, dest)
}

func TestNewLayout(t *testing.T) {
	root := t.TempDir()

	layout, err := NewLayout(root, "zlib", "1.3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "zlib", "1.3"), layout.Prefix())
	assert.Equal(t, filepath.Join(root, "zlib", "1.3", "bin"), layout.PrefixDir(Bin))
	assert.Equal(t, filepath.Join(root, "include"), layout.ShelfDir(Include))

	_, statErr := os.Stat(layout.PrefixDir(Bin))
	assert.True(t, os.IsNotExist(statErr), "directories are created lazily")

	for _, tc := range []struct{ name, version string }{
		{"", "1.0"},
		{"zlib", ""},
		{"../zlib", "1.0"},
		{"zlib", "1.0/../../x"},
		{".bake", "1"},
	} {
		_, err := NewLayout(root, tc.name, tc.version)
		assert.ErrorIs(t, err, core.ErrInvalidRecipe, "%q@%q", tc.name, tc.version)
	}
}

func TestLinkUnlink_Inverse(t *testing.T) {
	requireSymlinks(t)
	ctx := context.Background()
	root := t.TempDir()
	linker := NewLinker(runner.NewExecRunner())

	foo := newLayout(t, root, "foo", "1.0")
	writePrefixFile(t, foo, Bin, "foo")
	writePrefixFile(t, foo, Include, "foo.h")
	_, err := foo.EnsurePrefixDir(Lib)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(foo.PrefixDir(Lib), "pkgconfig"), 0755))

	bar := newLayout(t, root, "bar", "2.0")
	writePrefixFile(t, bar, Bin, "bar")
	writePrefixFile(t, bar, Lib, "libbar.a")

	linked, err := linker.Link(ctx, foo)
	require.NoError(t, err)
	assert.Equal(t, []string{"bin/foo", "lib/pkgconfig", "include/foo.h"}, linked)

	_, err = linker.Link(ctx, bar)
	require.NoError(t, err)

	assertLinksTo(t, filepath.Join(root, "bin", "foo"), filepath.Join(foo.PrefixDir(Bin), "foo"))
	assertLinksTo(t, filepath.Join(root, "lib", "pkgconfig"), filepath.Join(foo.PrefixDir(Lib), "pkgconfig"))
	assertLinksTo(t, filepath.Join(root, "bin", "bar"), filepath.Join(bar.PrefixDir(Bin), "bar"))

	removed, err := linker.Unlink(ctx, foo)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	for _, rel := range []string{"bin/foo", "lib/pkgconfig", "include/foo.h"} {
		_, err := os.Lstat(filepath.Join(root, filepath.FromSlash(rel)))
		assert.True(t, os.IsNotExist(err), rel)
	}
	assertLinksTo(t, filepath.Join(root, "bin", "bar"), filepath.Join(bar.PrefixDir(Bin), "bar"))
	assertLinksTo(t, filepath.Join(root, "lib", "libbar.a"), filepath.Join(bar.PrefixDir(Lib), "libbar.a"))

	manifest, err := LoadManifest(root)
	require.NoError(t, err)
	assert.Empty(t, manifest.Entries("foo", "1.0"))
	assert.Equal(t, []string{"bin/bar", "lib/libbar.a"}, manifest.Entries("bar", "2.0"))
}

func TestLink_SkipOnErrorIsolation(t *testing.T) {
	requireSymlinks(t)
	ctx := context.Background()

	setup := func(t *testing.T) Layout {
		layout := newLayout(t, t.TempDir(), "multi", "1")
		for _, name := range []string{"a", "b", "c"} {
			writePrefixFile(t, layout, Bin, name)
		}
		return layout
	}

	t.Run("skip", func(t *testing.T) {
		layout := setup(t)
		fake := &symlinkRunner{fail: map[string]bool{"b": true}}

		linked, err := NewLinker(fake).Link(ctx, layout)
		require.NoError(t, err)
		assert.Equal(t, []string{"bin/a", "bin/c"}, linked)
		assert.Equal(t, []string{"a", "b", "c"}, fake.calls)
	})

	t.Run("abort", func(t *testing.T) {
		layout := setup(t)
		fake := &symlinkRunner{fail: map[string]bool{"b": true}}
		linker := NewLinker(fake)
		linker.SetSkipOnError(false)

		linked, err := linker.Link(ctx, layout)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bin/b")
		assert.Equal(t, []string{"bin/a"}, linked)
		assert.Equal(t, []string{"a", "b"}, fake.calls)

		_, err = os.Lstat(filepath.Join(layout.Root, "bin", "c"))
		assert.True(t, os.IsNotExist(err))

		manifest, err := LoadManifest(layout.Root)
		require.NoError(t, err)
		assert.Equal(t, []string{"bin/a"}, manifest.Entries("multi", "1"))
	})
}

func TestLink_MissingCategories(t *testing.T) {
	requireSymlinks(t)
	root := t.TempDir()
	layout := newLayout(t, root, "headers", "0.1")
	writePrefixFile(t, layout, Include, "only.h")

	fake := &symlinkRunner{}
	linked, err := NewLinker(fake).Link(context.Background(), layout)
	require.NoError(t, err)
	assert.Equal(t, []string{"include/only.h"}, linked)

	_, err = os.Stat(filepath.Join(root, "bin"))
	assert.True(t, os.IsNotExist(err), "empty categories do not create shelf directories")

	empty := newLayout(t, root, "ghost", "1")
	linked, err = NewLinker(fake).Link(context.Background(), empty)
	require.NoError(t, err)
	assert.Empty(t, linked)

	removed, err := NewLinker(fake).Unlink(context.Background(), empty)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestLink_CollisionWithRealFile(t *testing.T) {
	requireSymlinks(t)
	root := t.TempDir()
	layout := newLayout(t, root, "tool", "1")
	writePrefixFile(t, layout, Bin, "tool")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "bin"), 0755))
	userFile := filepath.Join(root, "bin", "tool")
	require.NoError(t, os.WriteFile(userFile, []byte("mine"), 0644))

	fake := &symlinkRunner{}
	linked, err := NewLinker(fake).Link(context.Background(), layout)
	require.NoError(t, err)
	assert.Empty(t, linked)
	assert.Empty(t, fake.calls)

	data, err := os.ReadFile(userFile)
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))

	strict := NewLinker(fake)
	strict.SetSkipOnError(false)
	_, err = strict.Link(context.Background(), layout)
	assert.Error(t, err)
}

func TestLink_OtherRecipeSlotPreserved(t *testing.T) {
	requireSymlinks(t)
	ctx := context.Background()
	root := t.TempDir()

	other := newLayout(t, root, "other", "2.0")
	otherTarget := writePrefixFile(t, other, Bin, "tool")
	mine := newLayout(t, root, "mine", "1.0")
	writePrefixFile(t, mine, Bin, "tool")
	writePrefixFile(t, mine, Bin, "extra")

	_, err := NewLinker(&symlinkRunner{}).Link(ctx, other)
	require.NoError(t, err)

	fake := &symlinkRunner{}
	linked, err := NewLinker(fake).Link(ctx, mine)
	require.NoError(t, err)
	assert.Equal(t, []string{"bin/extra"}, linked)
	assert.Equal(t, []string{"extra"}, fake.calls)

	link := filepath.Join(root, "bin", "tool")
	assertLinksTo(t, link, otherTarget)

	removed, err := NewLinker(fake).Unlink(ctx, mine)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assertLinksTo(t, link, otherTarget)

	manifest, err := LoadManifest(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"bin/tool"}, manifest.Entries("other", "2.0"))

	strict := NewLinker(&symlinkRunner{})
	strict.SetSkipOnError(false)
	_, err = strict.Link(ctx, mine)
	assert.ErrorContains(t, err, "already links to")
	assertLinksTo(t, link, otherTarget)
}

func TestLink_SameRecipeNewVersionTakesOverSlot(t *testing.T) {
	requireSymlinks(t)
	ctx := context.Background()
	root := t.TempDir()
	linker := NewLinker(&symlinkRunner{})

	v1 := newLayout(t, root, "tool", "1.0")
	writePrefixFile(t, v1, Bin, "tool")
	v2 := newLayout(t, root, "tool", "2.0")
	writePrefixFile(t, v2, Bin, "tool")

	_, err := linker.Link(ctx, v1)
	require.NoError(t, err)
	_, err = linker.Link(ctx, v2)
	require.NoError(t, err)

	link := filepath.Join(root, "bin", "tool")
	assertLinksTo(t, link, filepath.Join(v2.PrefixDir(Bin), "tool"))

	manifest, err := LoadManifest(root)
	require.NoError(t, err)
	assert.Empty(t, manifest.Entries("tool", "1.0"))
	assert.Equal(t, []string{"bin/tool"}, manifest.Entries("tool", "2.0"))

	removed, err := linker.Unlink(ctx, v1)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assertLinksTo(t, link, filepath.Join(v2.PrefixDir(Bin), "tool"))

	// Linking again is a no-op for links that already point home.
	fake := &symlinkRunner{}
	linked, err := NewLinker(fake).Link(ctx, v2)
	require.NoError(t, err)
	assert.Equal(t, []string{"bin/tool"}, linked)
	assert.Empty(t, fake.calls)
}

func TestUnlink_ProvenanceScan(t *testing.T) {
	requireSymlinks(t)
	root := t.TempDir()
	layout := newLayout(t, root, "lib", "1.0")
	target := writePrefixFile(t, layout, Bin, "tool.exe")

	sibling := newLayout(t, root, "lib", "1.0.1")
	siblingTarget := writePrefixFile(t, sibling, Bin, "other.exe")

	// Links created without a manifest entry, one of them relative.
	binDir, err := layout.EnsureShelfDir(Bin)
	require.NoError(t, err)
	require.NoError(t, os.Symlink(target, filepath.Join(binDir, "tool.exe")))
	require.NoError(t, os.Symlink(filepath.Join("..", "lib", "1.0", "bin", "tool.exe"), filepath.Join(binDir, "rel.exe")))
	require.NoError(t, os.Symlink(siblingTarget, filepath.Join(binDir, "other.exe")))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "plain"), []byte("x"), 0644))

	removed, err := NewLinker(&symlinkRunner{}).Unlink(context.Background(), layout)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	for _, name := range []string{"tool.exe", "rel.exe"} {
		_, err := os.Lstat(filepath.Join(binDir, name))
		assert.True(t, os.IsNotExist(err), name)
	}
	assertLinksTo(t, filepath.Join(binDir, "other.exe"), siblingTarget)
	_, err = os.Stat(filepath.Join(binDir, "plain"))
	assert.NoError(t, err)
}

func TestHasPathPrefix(t *testing.T) {
	sep := string(filepath.Separator)
	prefix := filepath.Join(sep+"shelf", "lib", "1.0")

	tests := []struct {
		path string
		want bool
	}{
		{prefix, true},
		{filepath.Join(prefix, "bin", "tool.exe"), true},
		{filepath.Join(sep+"SHELF", "Lib", "1.0", "bin"), true},
		{filepath.Join(sep+"shelf", "lib", "1.0.1", "bin"), false},
		{filepath.Join(sep+"shelf", "lib"), false},
		{filepath.Join(sep+"elsewhere", "lib", "1.0"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, hasPathPrefix(tt.path, prefix), tt.path)
	}
}

func TestInstalledVersions(t *testing.T) {
	requireSymlinks(t)
	root := t.TempDir()
	layout := newLayout(t, root, "lib", "1.0")
	writePrefixFile(t, layout, Lib, "liblib.a")

	_, err := NewLinker(&symlinkRunner{}).Link(context.Background(), layout)
	require.NoError(t, err)

	versions, err := InstalledVersions(root, "lib")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0"}, versions)

	versions, err = InstalledVersions(root, "missing")
	require.NoError(t, err)
	assert.Empty(t, versions)
}
