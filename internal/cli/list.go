package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arc-language/bake"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known recipes",
	Long:  `List every built-in and file recipe with its version and install state.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var (
	nameStyle      = lipgloss.NewStyle().Bold(true)
	installedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#008700", Dark: "#5FD75F"})
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6C6C6C", Dark: "#8A8A8A"})
)

func runList(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	pkgs, err := mgr.List()
	if err != nil {
		return fmt.Errorf("listing recipes: %w", err)
	}

	printPackages(cmd.OutOrStdout(), pkgs, useColor(cmd.OutOrStdout()))
	return nil
}

func printPackages(w io.Writer, pkgs []bake.Package, color bool) {
	render := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	width := 0
	for _, p := range pkgs {
		if len(p.Name) > width {
			width = len(p.Name)
		}
	}

	for _, p := range pkgs {
		marker := " "
		state := ""
		if p.IsInstalled() {
			marker = render(installedStyle, "*")
			state = render(installedStyle, fmt.Sprintf("installed, %d links", p.Links))
		} else if len(p.Installed) > 0 {
			state = render(dimStyle, "other versions: "+strings.Join(p.Installed, ", "))
		}

		name := p.Name + strings.Repeat(" ", width-len(p.Name))
		line := fmt.Sprintf("%s %s  %s", marker, render(nameStyle, name), p.Version)
		if state != "" {
			line += "  " + state
		}
		fmt.Fprintln(w, line)
	}
}

// useColor reports whether w is a terminal
func useColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
