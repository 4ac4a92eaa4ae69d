package platform

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Tool is an external build program bake recipes commonly call
type Tool struct {
	Name string // Command looked up on PATH
	Path string // Resolved path, empty when missing
}

// Found reports whether the tool is on PATH
func (t Tool) Found() bool { return t.Path != "" }

// Platform represents the detected system and its build toolchain
type Platform struct {
	OS    string // linux, darwin, windows
	Arch  string // amd64, arm64, 386, arm
	Tools []Tool
}

// lookPath is swapped in tests
var lookPath = exec.LookPath

// Toolchain returns the build programs worth probing on goos, in
// display order
func Toolchain(goos string) []string {
	common := []string{"cc", "gcc", "clang", "make", "cmake", "git"}
	switch goos {
	case "windows":
		return append(common, "mingw32-make", "nmake", "cl")
	case "darwin":
		return append(common, "xcrun", "ln")
	default:
		return append(common, "ln")
	}
}

// Detect detects the current platform and which toolchain programs exist
func Detect() *Platform {
	return detect(runtime.GOOS, runtime.GOARCH)
}

func detect(goos, goarch string) *Platform {
	p := &Platform{OS: goos, Arch: goarch}
	for _, name := range Toolchain(goos) {
		tool := Tool{Name: name}
		if path, err := lookPath(name); err == nil {
			tool.Path = path
		}
		p.Tools = append(p.Tools, tool)
	}
	return p
}

// Available returns the names of the tools that were found
func (p *Platform) Available() []string {
	var names []string
	for _, t := range p.Tools {
		if t.Found() {
			names = append(names, t.Name)
		}
	}
	return names
}

// Missing returns which of names were not found. Names outside the probed
// toolchain are looked up directly.
func (p *Platform) Missing(names ...string) []string {
	var missing []string
	for _, name := range names {
		if !p.has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func (p *Platform) has(name string) bool {
	for _, t := range p.Tools {
		if t.Name == name {
			return t.Found()
		}
	}
	_, err := lookPath(name)
	return err == nil
}

// String returns a string representation of the platform
func (p *Platform) String() string {
	available := p.Available()
	if len(available) == 0 {
		return fmt.Sprintf("%s/%s (no build tools found)", p.OS, p.Arch)
	}
	return fmt.Sprintf("%s/%s (tools: %s)", p.OS, p.Arch, strings.Join(available, ", "))
}
