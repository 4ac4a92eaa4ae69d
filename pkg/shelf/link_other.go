//go:build !windows

package shelf

import "github.com/arc-language/bake/pkg/runner"

// linkCommand creates link pointing at target. -n keeps ln from following
// an existing link to a directory.
func linkCommand(target, link string, _ bool) runner.Command {
	return runner.Command{
		Name: "ln",
		Args: []string{"-s", "-n", target, link},
	}
}
