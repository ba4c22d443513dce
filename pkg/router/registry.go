package router

import (
	"context"
	"sync"
)

// Action handles a dispatched route. For navigation params holds the path
// parameters; for CallRoute it holds the request data merged with them.
type Action func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// Controller exposes its actions by name.
type Controller interface {
	Actions() map[string]Action
}

// Factory builds a fresh controller for every dispatch.
type Factory func() Controller

// Registry maps controller names used in route definitions to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Resolve(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// ActionMap adapts a plain map of actions into a Controller.
type ActionMap map[string]Action

func (a ActionMap) Actions() map[string]Action { return a }
