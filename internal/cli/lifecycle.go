package cli

import (
	"fmt"

	"github.com/arc-language/bake"
	"github.com/spf13/cobra"
)

var installCmd = lifecycleCmd(bake.OpInstall, "Build recipes and link them into the shelf", `Fetch, extract and build each recipe into shelf/<name>/<version>, then
link its bin, lib and include entries into the shelf.

Examples:
  bake install zlib
  bake install -v zlib fart`)

var uninstallCmd = lifecycleCmd(bake.OpUninstall, "Remove recipes and their shelf links", `Remove each recipe's shelf links and delete its prefix.
Uninstalling a recipe that is not installed does nothing.`)

var linkCmd = lifecycleCmd(bake.OpLink, "Link installed recipes into the shelf", `Create shelf links for an already built prefix. Entries that exist in the
shelf and are not links are left untouched.`)

var unlinkCmd = lifecycleCmd(bake.OpUnlink, "Remove recipes' shelf links, keeping the prefix", `Remove every shelf link that points into the recipe's prefix.`)

// lifecycleCmd builds a command running op for each named recipe in turn
func lifecycleCmd(op bake.Operation, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   string(op) + " [recipe...]",
		Short: short,
		Long:  long,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()
			failed := 0
			for _, name := range args {
				if err := mgr.Run(cmd.Context(), op, name); err != nil {
					fmt.Fprintf(errOut, "✗ %v\n", err)
					failed++
					continue
				}
				fmt.Fprintf(out, "✓ %s %s\n", pastTense(op), name)
			}

			if failed > 0 {
				return fmt.Errorf("%s failed for %d of %d recipes", op, failed, len(args))
			}
			return nil
		},
	}
}

func pastTense(op bake.Operation) string {
	switch op {
	case bake.OpInstall:
		return "installed"
	case bake.OpUninstall:
		return "uninstalled"
	case bake.OpLink:
		return "linked"
	case bake.OpUnlink:
		return "unlinked"
	}
	return string(op)
}
