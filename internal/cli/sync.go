package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Update recipe files from the recipe index",
	Long: `Clone the configured recipe index and copy its recipe files into the
recipes directory. Recipe files override built-in recipes of the same name.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Updating recipes from %s...\n", mgr.Config().IndexURL)
	n, err := mgr.Sync(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %d recipes updated in %s\n", n, mgr.Config().RecipesPath)
	return nil
}
