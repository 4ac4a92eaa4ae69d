//go:build windows

package shelf

import "github.com/arc-language/bake/pkg/runner"

// linkCommand uses a junction for directories and a symbolic link for files
func linkCommand(target, link string, isDir bool) runner.Command {
	args := []string{"/c", "mklink"}
	if isDir {
		args = append(args, "/J")
	}
	args = append(args, link, target)
	return runner.Command{Name: "cmd", Args: args}
}
