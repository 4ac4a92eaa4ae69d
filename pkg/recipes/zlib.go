package recipes

import (
	"context"

	"github.com/arc-language/bake/pkg/recipe"
)

// Zlib builds the zlib compression library with its configure script
func Zlib() recipe.Definition {
	return recipe.Definition{
		Version:  "1.3.1",
		URL:      "https://zlib.net/fossils/zlib-1.3.1.tar.gz",
		Checksum: "sha256:9a93b2b7dfdac77ceba5a558a580e74667dd6fede4585b91eefb60f03b72df23",
		Homepage: "https://zlib.net/",
		Build:    buildZlib,
	}
}

func buildZlib(ctx context.Context, b *recipe.BuildContext) error {
	if err := b.System(ctx, "./configure", "--prefix="+b.Prefix(), "--static"); err != nil {
		return err
	}
	if err := b.System(ctx, "make"); err != nil {
		return err
	}
	return b.System(ctx, "make", "install")
}
