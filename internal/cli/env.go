package cli

import (
	"fmt"
	"strings"

	"github.com/arc-language/bake/pkg/env"
	"github.com/spf13/cobra"
)

var printFlags bool

var envCmd = &cobra.Command{
	Use:   "env [library...]",
	Short: "Print the shell environment for using the shelf",
	Long: `Print export statements that put the shelf's bin, lib and include
directories on the search paths:

  eval "$(bake env)"

With --flags, print compiler flags for the named shelf libraries instead:

  cc main.c $(bake env --flags z png16)`,
	RunE: runEnv,
}

func init() {
	envCmd.Flags().BoolVar(&printFlags, "flags", false, "print -I/-L/-l compiler flags")
}

func runEnv(cmd *cobra.Command, args []string) error {
	shelf := env.New(config.ShelfRoot)
	out := cmd.OutOrStdout()

	if !printFlags {
		if len(args) > 0 {
			return fmt.Errorf("library names require --flags")
		}
		for _, line := range shelf.Exports() {
			fmt.Fprintln(out, line)
		}
		return nil
	}

	flags, missing := shelf.Flags(args...)
	if len(missing) > 0 {
		return fmt.Errorf("not on the shelf: %s", strings.Join(missing, ", "))
	}
	fmt.Fprintln(out, flags.String())
	return nil
}
