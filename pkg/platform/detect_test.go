package platform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakePath(t *testing.T, found ...string) {
	t.Helper()
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })

	lookPath = func(name string) (string, error) {
		for _, f := range found {
			if f == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestDetect(t *testing.T) {
	fakePath(t, "gcc", "make", "ln")

	p := detect("linux", "amd64")
	require.Len(t, p.Tools, len(Toolchain("linux")))
	assert.Equal(t, []string{"gcc", "make", "ln"}, p.Available())
	assert.Equal(t, "linux/amd64 (tools: gcc, make, ln)", p.String())
}

func TestDetectNothing(t *testing.T) {
	fakePath(t)

	p := detect("windows", "arm64")
	assert.Empty(t, p.Available())
	assert.Equal(t, "windows/arm64 (no build tools found)", p.String())
	assert.Contains(t, Toolchain("windows"), "mingw32-make")
}

func TestMissing(t *testing.T) {
	fakePath(t, "gcc", "ninja")

	p := detect("linux", "amd64")
	assert.Equal(t, []string{"make"}, p.Missing("gcc", "make", "ninja"))
	assert.Empty(t, p.Missing())
}
