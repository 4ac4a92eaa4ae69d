package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [recipe]",
	Short: "Show information about a recipe",
	Long:  `Display a recipe's source, version and what is installed on the shelf.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	info, err := mgr.Info(args[0])
	if err != nil {
		return fmt.Errorf("getting recipe info: %w", err)
	}

	rec, err := mgr.Recipe(info.Name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Recipe:   %s\n", info.Name)
	fmt.Fprintf(out, "Version:  %s\n", info.Version)
	if info.Homepage != "" {
		fmt.Fprintf(out, "Homepage: %s\n", info.Homepage)
	}
	fmt.Fprintf(out, "Source:   %s\n", info.URL)
	fmt.Fprintf(out, "Defined:  %s\n", info.Source)
	fmt.Fprintf(out, "Prefix:   %s\n", rec.Prefix())
	if len(info.Installed) > 0 {
		fmt.Fprintf(out, "Installed: %s\n", strings.Join(info.Installed, ", "))
		fmt.Fprintf(out, "Links:    %d\n", info.Links)
	} else {
		fmt.Fprintln(out, "Installed: no")
	}

	return nil
}
