package core

// Package describes a recipe for listing and info output
type Package struct {
	Name      string
	Version   string
	Homepage  string
	URL       string
	Source    string   // "builtin" or the recipe file path
	Installed []string // Versions with a prefix on the shelf
	Links     int      // Shelf links owned by Version
}

// IsInstalled reports whether the recipe's current version has a prefix
func (p Package) IsInstalled() bool {
	for _, v := range p.Installed {
		if v == p.Version {
			return true
		}
	}
	return false
}
