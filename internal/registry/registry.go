package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cmorrow/weathercache/internal/forecast"
)

// Registry is the static name -> location mapping. Immutable after New.
type Registry struct {
	locations map[string]forecast.Location
	names     []string
	def       string
}

// New builds a registry from the configured locations. defaultName selects the
// location served by the unkeyed endpoints; empty means the first entry.
func New(locations []forecast.Location, defaultName string) (*Registry, error) {
	if len(locations) == 0 {
		return nil, fmt.Errorf("registry requires at least one location")
	}

	byName := make(map[string]forecast.Location, len(locations))
	names := make([]string, 0, len(locations))
	for _, loc := range locations {
		if loc.Name == "" {
			return nil, fmt.Errorf("location with empty name")
		}
		// Names become cache file names; separators would escape the data dir.
		if strings.ContainsAny(loc.Name, `/\`) {
			return nil, fmt.Errorf("location name %q contains a path separator", loc.Name)
		}
		if _, dup := byName[loc.Name]; dup {
			return nil, fmt.Errorf("duplicate location %q", loc.Name)
		}
		byName[loc.Name] = loc
		names = append(names, loc.Name)
	}

	if defaultName == "" {
		defaultName = locations[0].Name
	}
	if _, ok := byName[defaultName]; !ok {
		return nil, fmt.Errorf("default location %q is not configured", defaultName)
	}

	sort.Strings(names)

	return &Registry{
		locations: byName,
		names:     names,
		def:       defaultName,
	}, nil
}

// Resolve looks up a location by name.
func (r *Registry) Resolve(name string) (forecast.Location, error) {
	loc, ok := r.locations[name]
	if !ok {
		return forecast.Location{}, fmt.Errorf("%w: %q", forecast.ErrUnknownLocation, name)
	}
	return loc, nil
}

// Names returns the configured location names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Default returns the name of the default location.
func (r *Registry) Default() string {
	return r.def
}
