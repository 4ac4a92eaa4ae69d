package archive

import (
	"fmt"
	"path"
	"strings"
)

// ignoredTopLevel holds top-level names that never decide the source root
var ignoredTopLevel = map[string]bool{
	"__MACOSX":          true,
	"pax_global_header": true,
}

// rootTracker resolves the canonical root folder while members stream by.
// The candidate is the top-level component of the first member; it survives
// only if every other member lives under the same folder.
type rootTracker struct {
	candidate string
	common    bool
	seen      bool
}

func (r *rootTracker) observe(name string, isDir bool) {
	clean := strings.TrimPrefix(path.Clean("/"+name), "/")
	if clean == "" {
		return
	}
	top, _, nested := strings.Cut(clean, "/")
	if ignoredTopLevel[top] {
		return
	}

	// A file sitting directly at the top level means the archive is flat.
	topIsDir := nested || isDir

	if !r.seen {
		r.seen = true
		r.candidate = top
		r.common = topIsDir
		return
	}
	if top != r.candidate || !topIsDir {
		r.common = false
	}
}

// folder returns the common top-level folder, or "" for flat archives
func (r *rootTracker) folder() string {
	if r.seen && r.common {
		return r.candidate
	}
	return ""
}

// sanitize converts an archive member name into a relative, slash-separated
// path that cannot escape the extraction directory
func sanitize(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if path.IsAbs(name) || (len(name) > 1 && name[1] == ':') {
		return "", fmt.Errorf("archive member %q has an absolute path", name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("archive member %q escapes the extraction directory", name)
	}
	if clean == "." {
		return "", nil
	}
	return clean, nil
}

// checkLinkTarget rejects a symlink member at rel whose target is absolute
// or resolves outside the extraction directory
func checkLinkTarget(rel, linkname string) error {
	dest := strings.ReplaceAll(linkname, "\\", "/")
	if dest == "" {
		return fmt.Errorf("symlink %q has an empty target", rel)
	}
	if path.IsAbs(dest) || (len(dest) > 1 && dest[1] == ':') {
		return fmt.Errorf("symlink %q points to absolute path %q", rel, linkname)
	}
	resolved := path.Join(path.Dir(rel), dest)
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return fmt.Errorf("symlink %q escapes the extraction directory via %q", rel, linkname)
	}
	return nil
}
