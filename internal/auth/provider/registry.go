package provider

import (
	"fmt"
	"sort"
	"strings"
)

// Registry resolves the {provider} path segment to a configured provider.
type Registry struct {
	providers map[string]OAuthProvider
}

// NewRegistry indexes providers by lower-cased name. Registering the same
// name twice is a wiring bug and panics.
func NewRegistry(list ...OAuthProvider) *Registry {
	m := make(map[string]OAuthProvider, len(list))
	for _, p := range list {
		key := strings.ToLower(p.Name())
		if _, dup := m[key]; dup {
			panic(fmt.Sprintf("provider: %q registered twice", key))
		}
		m[key] = p
	}
	return &Registry{providers: m}
}

// Get looks a provider up by name, ignoring case.
func (r *Registry) Get(name string) (OAuthProvider, error) {
	p, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names lists registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
