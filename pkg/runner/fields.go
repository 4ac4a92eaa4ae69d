package runner

import (
	"fmt"

	"github.com/arc-language/bake/pkg/core"
	"mvdan.cc/sh/v3/shell"
)

// Fields splits a shell-style command line into arguments, expanding
// $VAR and ${VAR} from vars. Unknown variables expand to the empty string.
func Fields(line string, vars map[string]string) ([]string, error) {
	fields, err := shell.Fields(line, func(name string) string {
		return vars[name]
	})
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %q: %v", core.ErrInvalidRecipe, line, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty command line", core.ErrInvalidRecipe)
	}
	return fields, nil
}
