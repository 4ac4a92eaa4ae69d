package shelf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

const manifestFileName = "links.yaml"

// Manifest records which shelf links each recipe version created. Paths are
// relative to the shelf root and slash-separated, e.g. "bin/tool.exe".
type Manifest struct {
	path  string
	Links map[string]map[string][]string `yaml:"links"`
}

// LoadManifest reads the manifest of the shelf at root. A missing file
// yields an empty manifest.
func LoadManifest(root string) (*Manifest, error) {
	m := &Manifest{
		path:  filepath.Join(StateDir(root), manifestFileName),
		Links: make(map[string]map[string][]string),
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading link manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing link manifest %s: %w", m.path, err)
	}
	if m.Links == nil {
		m.Links = make(map[string]map[string][]string)
	}
	return m, nil
}

// Path returns the manifest file location
func (m *Manifest) Path() string {
	return m.path
}

// Record adds links for name@version, keeping entries sorted and unique
func (m *Manifest) Record(name, version string, links []string) {
	if len(links) == 0 {
		return
	}
	versions, ok := m.Links[name]
	if !ok {
		versions = make(map[string][]string)
		m.Links[name] = versions
	}
	versions[version] = mergeSorted(versions[version], links)
}

// Entries returns the links recorded for name@version
func (m *Manifest) Entries(name, version string) []string {
	return m.Links[name][version]
}

// Forget drops name@version and removes name once no version is left
func (m *Manifest) Forget(name, version string) {
	versions, ok := m.Links[name]
	if !ok {
		return
	}
	delete(versions, version)
	if len(versions) == 0 {
		delete(m.Links, name)
	}
}

// Drop removes individual links from every recipe that recorded them.
// Used when another version takes over a shelf entry.
func (m *Manifest) Drop(rel string) {
	for name, versions := range m.Links {
		for version, links := range versions {
			kept := links[:0]
			for _, l := range links {
				if l != rel {
					kept = append(kept, l)
				}
			}
			if len(kept) == 0 {
				delete(versions, version)
			} else {
				versions[version] = kept
			}
		}
		if len(versions) == 0 {
			delete(m.Links, name)
		}
	}
}

// Count returns how many links name@version owns
func (m *Manifest) Count(name, version string) int {
	return len(m.Links[name][version])
}

// Save writes the manifest atomically
func (m *Manifest) Save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling link manifest: %w", err)
	}
	if err := writeFileAtomic(m.path, data); err != nil {
		return fmt.Errorf("writing link manifest: %w", err)
	}
	return nil
}

func mergeSorted(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
