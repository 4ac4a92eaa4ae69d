// Package recipes holds the recipes compiled into bake. Recipe files in
// the recipes directory can override any of them.
package recipes

import (
	"runtime"

	"github.com/arc-language/bake/pkg/recipe"
)

// RegisterBuiltins adds every built-in recipe to reg
func RegisterBuiltins(reg *recipe.Registry) {
	reg.Register("zlib", Zlib)
	reg.Register("fart", Fart)
	reg.Register("qt5", Qt5)
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}
