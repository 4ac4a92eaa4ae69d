package recipes

import (
	"context"
	"path/filepath"

	"github.com/arc-language/bake/pkg/recipe"
)

// Qt5 builds the Qt 5.1 SDK with MinGW
func Qt5() recipe.Definition {
	return recipe.Definition{
		Version:  "5.1",
		URL:      "http://download.qt-project.org/official_releases/qt/5.1/5.1.1/single/qt-everywhere-opensource-src-5.1.1.zip",
		Homepage: "https://www.qt.io/",
		Build:    buildQt5,
	}
}

// buildQt5 runs the source tree's configure, which resolves to configure.bat
// through PATHEXT on Windows
func buildQt5(ctx context.Context, b *recipe.BuildContext) error {
	err := b.System(ctx, filepath.Join(b.SourceRoot, "configure"),
		"-prefix", b.Prefix(),
		"-platform", "win32-g++",
		"-opensource",
		"-debug", "-debug-and-release",
		"-no-vcproj", "-no-opengl", "-no-openvg",
		"-nomake", "examples",
	)
	if err != nil {
		return err
	}
	if err := b.System(ctx, "mingw32-make"); err != nil {
		return err
	}
	return b.System(ctx, "mingw32-make", "install")
}
