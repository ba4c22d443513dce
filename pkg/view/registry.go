package view

import (
	"sort"
	"sync"
)

// Registry is the name -> template text cache.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]string
}

func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]string)}
}

func (r *Registry) Register(name, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[name] = text
}

func (r *Registry) Get(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	text, ok := r.templates[name]
	return text, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.templates, name)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
