package recipes

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/arc-language/bake/pkg/fetch"
	"github.com/arc-language/bake/pkg/recipe"
	"github.com/arc-language/bake/pkg/runner"
	"github.com/arc-language/bake/pkg/shelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	cmds []runner.Command
}

func (r *recordingRunner) Run(_ context.Context, cmd runner.Command) error {
	r.cmds = append(r.cmds, cmd)
	return nil
}

func TestRegisterBuiltins(t *testing.T) {
	reg := recipe.NewRegistry()
	RegisterBuiltins(reg)

	assert.Equal(t, []string{"fart", "qt5", "zlib"}, reg.Names())

	for _, name := range reg.Names() {
		def, err := reg.Lookup(name)
		require.NoError(t, err, name)
		require.NoError(t, def.Validate(), name)
		assert.NotNil(t, def.Build, name)
		assert.Equal(t, recipe.SourceBuiltin, def.Source)

		if def.Checksum != "" {
			_, err := fetch.ParseChecksum(def.Checksum)
			assert.NoError(t, err, name)
		}
	}
}

func buildWith(t *testing.T, def recipe.Definition, name string) (*recordingRunner, shelf.Layout, string) {
	t.Helper()
	root := t.TempDir()
	layout, err := shelf.NewLayout(filepath.Join(root, "shelf"), name, def.Version)
	require.NoError(t, err)

	fake := &recordingRunner{}
	src := filepath.Join(root, "src")
	require.NoError(t, def.Build(context.Background(), recipe.NewBuildContext(src, layout, fake)))
	return fake, layout, src
}

func TestFartBuild(t *testing.T) {
	fake, layout, src := buildWith(t, Fart(), "fart")

	require.Len(t, fake.cmds, 1)
	cmd := fake.cmds[0]
	assert.Equal(t, "gcc", cmd.Name)
	assert.Equal(t, src, cmd.Dir)
	assert.Equal(t, filepath.Join(layout.PrefixDir(shelf.Bin), exeName("fart")), cmd.Args[len(cmd.Args)-1])
	assert.DirExists(t, layout.PrefixDir(shelf.Bin))
}

func TestZlibBuild(t *testing.T) {
	fake, layout, _ := buildWith(t, Zlib(), "zlib")

	require.Len(t, fake.cmds, 3)
	assert.Equal(t, "./configure", fake.cmds[0].Name)
	assert.Contains(t, fake.cmds[0].Args, "--prefix="+layout.Prefix())
	assert.Equal(t, []string{"install"}, fake.cmds[2].Args)
}

func TestQt5Build(t *testing.T) {
	fake, layout, src := buildWith(t, Qt5(), "qt5")

	require.Len(t, fake.cmds, 3)
	assert.Equal(t, filepath.Join(src, "configure"), fake.cmds[0].Name)
	assert.Equal(t, src, fake.cmds[0].Dir)
	args := fake.cmds[0].Args
	assert.Equal(t, []string{"-prefix", layout.Prefix()}, args[:2])
	assert.Contains(t, args, "win32-g++")
	assert.Equal(t, "mingw32-make", fake.cmds[2].Name)
}
