// Package router implements hash-based navigation over a route table whose
// entries name a controller and an action. Controllers are resolved through
// an explicit Registry rather than by global lookup.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

type Route struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	Controller string `json:"controller"`
	Action     string `json:"action"`
}

type Router struct {
	mu       sync.RWMutex
	routes   []*Route
	current  *Route
	location *Location
	registry *Registry
	logger   *slog.Logger
	detach   func()
}

func NewRouter(location *Location, registry *Registry, logger *slog.Logger) *Router {
	if location == nil {
		location = NewLocation("")
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{location: location, registry: registry, logger: logger}
}

func (r *Router) Location() *Location { return r.location }

func (r *Router) Registry() *Registry { return r.registry }

func (r *Router) Get(path, controller, action string) {
	r.add(http.MethodGet, path, controller, action)
}

func (r *Router) Post(path, controller, action string) {
	r.add(http.MethodPost, path, controller, action)
}

func (r *Router) Put(path, controller, action string) {
	r.add(http.MethodPut, path, controller, action)
}

func (r *Router) Delete(path, controller, action string) {
	r.add(http.MethodDelete, path, controller, action)
}

func (r *Router) Patch(path, controller, action string) {
	r.add(http.MethodPatch, path, controller, action)
}

func (r *Router) add(method, path, controller, action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, &Route{
		Method:     method,
		Path:       path,
		Controller: controller,
		Action:     action,
	})
	r.logger.Debug("Route Registered", "method", method, "path", path, "controller", controller, "action", action)
}

// Routes returns a copy of the table in registration order.
func (r *Router) Routes() []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Route, len(r.routes))
	for i, rt := range r.routes {
		out[i] = *rt
	}
	return out
}

// Current returns the route handled last by HandleRoute, or nil.
func (r *Router) Current() *Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// CurrentPath is the location hash without '#', always starting with '/'.
func (r *Router) CurrentPath() string {
	hash := strings.TrimPrefix(r.location.Hash(), "#")
	if !strings.HasPrefix(hash, "/") {
		hash = "/" + hash
	}
	return hash
}

// Match returns the first GET route whose pattern matches path. An empty
// path means the current location.
func (r *Router) Match(path string) *Route {
	if path == "" {
		path = r.CurrentPath()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rt := range r.routes {
		if rt.Method == http.MethodGet && MatchPath(rt.Path, path) {
			return rt
		}
	}
	return nil
}

// Lookup finds the route CallRoute would dispatch to: an exact path and
// method match first, then the first pattern match for the method.
func (r *Router) Lookup(path, method string) (*Route, map[string]string) {
	method = strings.ToUpper(method)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rt := range r.routes {
		if rt.Path == path && rt.Method == method {
			return rt, map[string]string{}
		}
	}
	for _, rt := range r.routes {
		if rt.Method == method && MatchPath(rt.Path, path) {
			return rt, ExtractParams(rt.Path, path)
		}
	}
	return nil, nil
}

// HasRoute reports whether path and method name a registered route exactly,
// without pattern matching.
func (r *Router) HasRoute(path, method string) bool {
	method = strings.ToUpper(method)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rt := range r.routes {
		if rt.Path == path && rt.Method == method {
			return true
		}
	}
	return false
}

// MatchPath compares segment by segment. "{name}" matches any single
// segment; a trailing "*" matches whatever remains, including nothing.
func MatchPath(routePath, currentPath string) bool {
	routeParts := segments(routePath)
	currentParts := segments(currentPath)

	if n := len(routeParts); n > 0 && routeParts[n-1] == "*" {
		if len(currentParts) < n-1 {
			return false
		}
		routeParts = routeParts[:n-1]
		currentParts = currentParts[:n-1]
	}

	if len(routeParts) != len(currentParts) {
		return false
	}
	for i, part := range routeParts {
		if isParam(part) {
			continue
		}
		if part != currentParts[i] {
			return false
		}
	}
	return true
}

// ExtractParams returns the values of the "{name}" segments, plus "*" for a
// trailing wildcard.
func ExtractParams(routePath, currentPath string) map[string]string {
	params := make(map[string]string)
	routeParts := segments(routePath)
	currentParts := segments(currentPath)

	for i, part := range routeParts {
		if part == "*" && i == len(routeParts)-1 {
			if i < len(currentParts) {
				params["*"] = strings.Join(currentParts[i:], "/")
			} else {
				params["*"] = ""
			}
			break
		}
		if isParam(part) && i < len(currentParts) {
			params[part[1:len(part)-1]] = currentParts[i]
		}
	}
	return params
}

func segments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isParam(part string) bool {
	return len(part) > 2 && strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}")
}

// Navigate points the location hash at path; hash listeners do the rest.
func (r *Router) Navigate(path string) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	r.location.SetHash(path)
}

// HandleRoute dispatches the current location to its controller action.
func (r *Router) HandleRoute(ctx context.Context) error {
	path := r.CurrentPath()
	route := r.Match(path)
	if route == nil {
		r.logger.Error("❌ Route not found", "path", path)
		return fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}

	r.mu.Lock()
	r.current = route
	r.mu.Unlock()

	action, err := r.resolve(route)
	if err != nil {
		r.logger.Error("❌ Route dispatch failed", "path", path, "error", err)
		return err
	}

	params := make(map[string]interface{})
	for k, v := range ExtractParams(route.Path, path) {
		params[k] = v
	}
	if _, err := action(ctx, params); err != nil {
		r.logger.Error("❌ Action failed", "controller", route.Controller, "action", route.Action, "error", err)
		return err
	}
	return nil
}

func (r *Router) resolve(route *Route) (Action, error) {
	factory, ok := r.registry.Resolve(route.Controller)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrControllerNotFound, route.Controller)
	}
	action, ok := factory().Actions()[route.Action]
	if !ok || action == nil {
		return nil, fmt.Errorf("%w: %s@%s", ErrActionNotFound, route.Controller, route.Action)
	}
	return action, nil
}

// Init handles the current location and every later hash change until ctx
// is done.
func (r *Router) Init(ctx context.Context) error {
	r.mu.Lock()
	if r.detach != nil {
		r.detach()
	}
	r.detach = r.location.OnHashChange(func(string) {
		if ctx.Err() != nil {
			return
		}
		r.HandleRoute(ctx)
	})
	r.mu.Unlock()

	return r.HandleRoute(ctx)
}

// Stop detaches the router from location changes.
func (r *Router) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detach != nil {
		r.detach()
		r.detach = nil
	}
}
