package recipes

import (
	"context"
	"path/filepath"

	"github.com/arc-language/bake/pkg/recipe"
)

// Fart builds the "find and replace text" command line tool
func Fart() recipe.Definition {
	return recipe.Definition{
		Version:  "1.99b",
		URL:      "http://downloads.sourceforge.net/project/fart-it/fart-it/1.99b/fart199b_source.zip",
		Homepage: "https://fart-it.sourceforge.net/",
		Build:    buildFart,
	}
}

func buildFart(ctx context.Context, b *recipe.BuildContext) error {
	bin, err := b.Bin()
	if err != nil {
		return err
	}
	return b.System(ctx, "gcc",
		"fart.cpp", "fart_shared.c", "wildmat.c",
		"-o", filepath.Join(bin, exeName("fart")),
	)
}
