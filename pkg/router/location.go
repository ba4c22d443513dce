package router

import (
	"net/url"
	"strings"
	"sync"
)

// Location stands in for the browser address bar: a hash fragment, a query
// string and listeners notified when the hash changes.
type Location struct {
	mu        sync.Mutex
	hash      string
	search    string
	listeners map[int]func(hash string)
	nextID    int
}

// NewLocation seeds a Location from a URL such as "http://app.local/?tab=1#/users".
func NewLocation(raw string) *Location {
	l := &Location{listeners: make(map[int]func(string))}
	if u, err := url.Parse(raw); err == nil {
		if u.Fragment != "" {
			l.hash = "#" + u.Fragment
		}
		if u.RawQuery != "" {
			l.search = "?" + u.RawQuery
		}
	}
	return l
}

// Hash returns the fragment including the leading '#', or "".
func (l *Location) Hash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hash
}

// SetHash updates the fragment and notifies listeners when it changed.
func (l *Location) SetHash(hash string) {
	if hash != "" && !strings.HasPrefix(hash, "#") {
		hash = "#" + hash
	}

	l.mu.Lock()
	if hash == l.hash {
		l.mu.Unlock()
		return
	}
	l.hash = hash
	listeners := make([]func(string), 0, len(l.listeners))
	for id := 0; id < l.nextID; id++ {
		if fn, ok := l.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(hash)
	}
}

func (l *Location) Search() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.search
}

func (l *Location) SetSearch(search string) {
	if search != "" && !strings.HasPrefix(search, "?") {
		search = "?" + search
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.search = search
}

// Query parses the search string.
func (l *Location) Query() url.Values {
	q, _ := url.ParseQuery(strings.TrimPrefix(l.Search(), "?"))
	return q
}

// OnHashChange registers fn and returns a function removing it. Listeners
// run in registration order.
func (l *Location) OnHashChange(fn func(hash string)) (remove func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.listeners, id)
	}
}
