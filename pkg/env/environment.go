package env

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Environment is the consumer view of a shelf
type Environment struct {
	Root string
}

// New returns the environment of the shelf at root
func New(root string) *Environment {
	return &Environment{Root: root}
}

// BinDir returns the shelf's executable directory
func (e *Environment) BinDir() string { return filepath.Join(e.Root, "bin") }

// LibDir returns the shelf's library directory
func (e *Environment) LibDir() string { return filepath.Join(e.Root, "lib") }

// IncludeDir returns the shelf's header directory
func (e *Environment) IncludeDir() string { return filepath.Join(e.Root, "include") }

// PkgConfigDir returns where linked pkg-config files end up
func (e *Environment) PkgConfigDir() string { return filepath.Join(e.LibDir(), "pkgconfig") }

// Var is one environment variable the shelf contributes to
type Var struct {
	Name  string
	Value string // Prepended to any existing value
}

// Vars returns the variables needed to build against and run from the
// shelf, in a stable order
func (e *Environment) Vars() []Var {
	vars := []Var{
		{Name: "PATH", Value: e.BinDir()},
		{Name: "CPATH", Value: e.IncludeDir()},
		{Name: "LIBRARY_PATH", Value: e.LibDir()},
		{Name: "PKG_CONFIG_PATH", Value: e.PkgConfigDir()},
	}
	if name := runtimeLibraryVar(); name != "" && name != "PATH" {
		vars = append(vars, Var{Name: name, Value: e.LibDir()})
	}
	return vars
}

// runtimeLibraryVar names the dynamic loader search variable. Windows
// searches PATH for DLLs, which Vars already covers.
func runtimeLibraryVar() string {
	switch runtime.GOOS {
	case "darwin":
		return "DYLD_LIBRARY_PATH"
	case "windows":
		return "PATH"
	default:
		return "LD_LIBRARY_PATH"
	}
}

// Environ returns base with the shelf variables prepended, in the
// KEY=VALUE form used by os/exec
func (e *Environment) Environ(base []string) []string {
	current := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			current[k] = v
		}
	}
	for _, v := range e.Vars() {
		current[v.Name] = prependList(v.Value, current[v.Name])
	}

	out := make([]string, 0, len(current))
	for k, v := range current {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Exports renders POSIX shell statements that add the shelf to the
// current environment, one per line
func (e *Environment) Exports() []string {
	lines := make([]string, 0, len(e.Vars()))
	for _, v := range e.Vars() {
		quoted, err := syntax.Quote(v.Value, syntax.LangPOSIX)
		if err != nil {
			quoted = "'" + v.Value + "'"
		}
		lines = append(lines, "export "+v.Name+"="+quoted+`"${`+v.Name+`:+`+string(os.PathListSeparator)+`$`+v.Name+`}"`)
	}
	return lines
}

func prependList(value, existing string) string {
	if existing == "" {
		return value
	}
	return value + string(os.PathListSeparator) + existing
}
