package cli

import (
	"fmt"

	"github.com/arc-language/bake/pkg/platform"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build toolchain information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "bake version %s\n", version)
		fmt.Fprintln(out, "Source-based package manager for native libraries")
		fmt.Fprintln(out, "https://github.com/arc-language/bake")
		fmt.Fprintf(out, "Platform: %s\n", platform.Detect())
	},
}
