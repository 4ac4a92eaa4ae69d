package recipe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arc-language/bake/pkg/core"
	"github.com/arc-language/bake/pkg/logging"
	"github.com/rs/zerolog"
)

// Constructor returns a fresh definition for one recipe
type Constructor func() Definition

// Registry maps lowercase recipe names to their constructors
type Registry struct {
	constructors map[string]Constructor
	invalid      map[string]error // Recipe files that failed to load, by name
	logger       zerolog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
		invalid:      make(map[string]error),
		logger:       logging.GetLogger("registry"),
	}
}

// Register adds or replaces the constructor for name
func (r *Registry) Register(name string, ctor Constructor) {
	key := strings.ToLower(name)
	if _, exists := r.constructors[key]; exists {
		r.logger.Debug().Str("recipe", key).Msg("Replacing registered recipe")
	}
	r.constructors[key] = ctor
}

// Lookup builds the definition registered under name. The lookup is case
// insensitive and the returned definition always carries the lowercase name.
func (r *Registry) Lookup(name string) (Definition, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if err, bad := r.invalid[key]; bad {
		return Definition{}, err
	}
	ctor, ok := r.constructors[key]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", core.ErrUnknownRecipe, name)
	}
	def := ctor()
	def.Name = key
	if def.Source == "" {
		def.Source = SourceBuiltin
	}
	return def, nil
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.constructors[strings.ToLower(name)]
	return ok
}

// Names returns every registered name, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
