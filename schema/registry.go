package schema

import (
	"maps"
	"slices"
	"sync"
)

// Registry resolves collections by alias. It is created once per application
// context and injected into the components that need to look collections up.
type Registry struct {
	mu          sync.RWMutex
	collections map[string]*Collection
	defaults    []CollectionOption
}

// NewRegistry returns an empty registry. defaults are applied to every
// collection the registry creates, before the per-call options.
func NewRegistry(defaults ...CollectionOption) *Registry {
	return &Registry{
		collections: make(map[string]*Collection),
		defaults:    defaults,
	}
}

// Get returns the collection registered under alias, creating it with opts if
// it does not exist. opts are ignored for existing collections.
func (r *Registry) Get(alias string, opts ...CollectionOption) *Collection {
	r.mu.RLock()
	c, ok := r.collections[alias]
	r.mu.RUnlock()
	if ok {
		return c
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.collections[alias]; ok {
		return c
	}
	c = NewCollection(alias, append(slices.Clone(r.defaults), opts...)...)
	r.collections[alias] = c
	return c
}

// Lookup returns the collection registered under alias, if any.
func (r *Registry) Lookup(alias string) (*Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collections[alias]
	return c, ok
}

// Set registers c under its alias, replacing any previous collection.
func (r *Registry) Set(c *Collection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[c.Alias()] = c
}

// Remove unregisters the collection with the given alias.
func (r *Registry) Remove(alias string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.collections, alias)
}

// Aliases returns the registered aliases in sorted order.
func (r *Registry) Aliases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.collections))
}

// Clear drops every collection. Tests call it between runs.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.collections)
}
