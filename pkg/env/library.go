package env

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Library is a library file published on the shelf
type Library struct {
	Name     string // Library name without "lib" prefix or extension, e.g. "z"
	Path     string // Path of the shelf entry
	Type     string // Extension: ".so", ".a", ".dylib", ".dll", ".lib"
	IsStatic bool
}

// CompilerFlags holds compiler and linker flags for shelf libraries
type CompilerFlags struct {
	IncludeFlags []string // -I flags
	LibraryFlags []string // -L flags
	LinkFlags    []string // -l flags
}

// String joins every flag with spaces
func (f CompilerFlags) String() string {
	all := append(append(append([]string{}, f.IncludeFlags...), f.LibraryFlags...), f.LinkFlags...)
	return strings.Join(all, " ")
}

// LibraryExtensions returns the library file extensions of the current OS
func LibraryExtensions() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{".dylib", ".a"}
	case "windows":
		return []string{".dll", ".lib", ".a"}
	default:
		return []string{".so", ".a"}
	}
}

func isStatic(ext string) bool {
	return ext == ".a" || ext == ".lib"
}

// Libraries lists every library file linked into shelf/lib, sorted by name
func (e *Environment) Libraries() []*Library {
	entries, err := os.ReadDir(e.LibDir())
	if err != nil {
		return nil
	}

	var libs []*Library
	for _, entry := range entries {
		name := entry.Name()
		for _, ext := range LibraryExtensions() {
			// libz.so, libz.so.1, libz.1.dylib
			if !strings.HasSuffix(name, ext) && !strings.Contains(name, ext+".") {
				continue
			}
			libName := strings.TrimPrefix(name, "lib")
			libName = strings.Split(libName, ".")[0]
			if libName == "" {
				break
			}
			libs = append(libs, &Library{
				Name:     libName,
				Path:     filepath.Join(e.LibDir(), name),
				Type:     ext,
				IsStatic: isStatic(ext),
			})
			break
		}
	}

	sort.SliceStable(libs, func(i, j int) bool { return libs[i].Name < libs[j].Name })
	return libs
}

// FindLibrary returns the first library called name, preferring shared
// libraries when preferShared is set
func (e *Environment) FindLibrary(name string, preferShared bool) *Library {
	var fallback *Library
	for _, lib := range e.Libraries() {
		if lib.Name != name {
			continue
		}
		if lib.IsStatic == !preferShared {
			return lib
		}
		if fallback == nil {
			fallback = lib
		}
	}
	return fallback
}

// Flags returns the flags to compile against and link the named shelf
// libraries. Names not found on the shelf are reported in missing.
func (e *Environment) Flags(names ...string) (flags CompilerFlags, missing []string) {
	flags.IncludeFlags = []string{"-I" + e.IncludeDir()}
	flags.LibraryFlags = []string{"-L" + e.LibDir()}

	for _, name := range names {
		if e.FindLibrary(name, true) == nil {
			missing = append(missing, name)
			continue
		}
		flags.LinkFlags = append(flags.LinkFlags, "-l"+name)
	}
	return flags, missing
}
