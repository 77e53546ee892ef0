package handler

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// FileScheme is the scheme assumed for locators without one.
const FileScheme = "file"

// Registry maps locator schemes to handlers.
type Registry struct {
	mu       sync.RWMutex
	byScheme map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byScheme: make(map[string]Handler)}
}

// Register binds h to each of schemes, replacing any previous binding.
func (r *Registry) Register(h Handler, schemes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range schemes {
		r.byScheme[strings.ToLower(s)] = h
	}
}

// Lookup returns the handler serving locator's scheme.
func (r *Registry) Lookup(locator string) (Handler, error) {
	scheme, err := Scheme(locator)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	h, ok := r.byScheme[scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
	return h, nil
}

// Schemes returns the registered schemes, sorted.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byScheme))
	for s := range r.byScheme {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Scheme returns the lower-cased scheme of locator. Absolute or relative
// filesystem paths report FileScheme.
func Scheme(locator string) (string, error) {
	if locator == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidLocator)
	}
	i := strings.Index(locator, "://")
	if i <= 0 {
		return FileScheme, nil
	}
	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}
	return strings.ToLower(u.Scheme), nil
}
