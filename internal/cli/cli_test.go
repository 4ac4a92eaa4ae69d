package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arc-language/bake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with isolated directories
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{
		"--config", filepath.Join(root, "config.yaml"),
		"--shelf", filepath.Join(root, "shelf"),
		"--cache", filepath.Join(root, "cache"),
		"--recipes", filepath.Join(root, "recipes"),
	}, args...))
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		printFlags = false
	})

	err := Execute()
	return stdout.String(), stderr.String(), err
}

func TestUnknownCommand(t *testing.T) {
	_, _, err := run(t, "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "bake version "+version)
	assert.Contains(t, out, "Platform: ")
}

func TestEnv(t *testing.T) {
	out, _, err := run(t, "env")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "export PATH="), out)
	assert.Contains(t, out, "CPATH=")

	_, _, err = run(t, "env", "z")
	assert.ErrorContains(t, err, "require --flags")

	_, _, err = run(t, "env", "--flags", "z")
	assert.ErrorContains(t, err, "not on the shelf: z")

	out, _, err = run(t, "env", "--flags")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "-I"), out)
}

func TestList(t *testing.T) {
	out, _, err := run(t, "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "fart")
	assert.Contains(t, lines[2], "zlib")
	assert.Contains(t, lines[2], "1.3.1")
}

func TestInfo(t *testing.T) {
	out, _, err := run(t, "info", "ZLIB")
	require.NoError(t, err)
	assert.Contains(t, out, "Recipe:   zlib")
	assert.Contains(t, out, "Installed: no")

	_, _, err = run(t, "info", "nothing")
	assert.ErrorIs(t, err, bake.ErrUnknownRecipe)
}

func TestInstall_ReportsFailures(t *testing.T) {
	_, stderr, err := run(t, "install", "nothing", "also-nothing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2")
	assert.Contains(t, stderr, "✗ install nothing [resolve]")
}

func TestInstall_RequiresName(t *testing.T) {
	_, _, err := run(t, "install")
	assert.Error(t, err)
}

func TestPrintPackages(t *testing.T) {
	var buf bytes.Buffer
	printPackages(&buf, []bake.Package{
		{Name: "fart", Version: "1.99b"},
		{Name: "zlib", Version: "1.3.1", Installed: []string{"1.3.1"}, Links: 4},
		{Name: "qt5", Version: "5.1", Installed: []string{"5.0"}},
	}, false)

	assert.Equal(t, strings.Join([]string{
		"  fart  1.99b",
		"* zlib  1.3.1  installed, 4 links",
		"  qt5   5.1  other versions: 5.0",
		"",
	}, "\n"), buf.String())
}

func TestUseColor(t *testing.T) {
	assert.False(t, useColor(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, useColor(f))
}
