// Package cache maps remote locators to paths in the local cache directory.
package cache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Resolver maps a source locator to a local destination path.
type Resolver interface {
	Resolve(locator string) (string, error)
}

// Layout selects how Dir names cache files.
type Layout string

const (
	// LayoutFlat keeps only the base name: http://host/a/b.vtk -> <root>/b.vtk.
	LayoutFlat Layout = "flat"

	// LayoutHost mirrors host and path: http://host/a/b.vtk -> <root>/host/a/b.vtk.
	LayoutHost Layout = "host"

	// LayoutHashed names files by locator digest:
	// <root>/<d[0:2]>/<d><ext>. Distinct locators never collide.
	LayoutHashed Layout = "hashed"
)

// ErrEmptyLocator is returned when resolving "".
var ErrEmptyLocator = errors.New("empty locator")

// ParseLayout validates a layout name. "" means LayoutFlat.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(s)); l {
	case "":
		return LayoutFlat, nil
	case LayoutFlat, LayoutHost, LayoutHashed:
		return l, nil
	}
	return "", fmt.Errorf("unknown cache layout %q", s)
}

// Dir resolves locators below a root directory.
type Dir struct {
	root   string
	layout Layout
}

var _ Resolver = (*Dir)(nil)

// NewDir returns a resolver rooted at root, which is made absolute.
func NewDir(root string, layout Layout) (*Dir, error) {
	if root == "" {
		return nil, errors.New("cache root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache root: %w", err)
	}
	l, err := ParseLayout(string(layout))
	if err != nil {
		return nil, err
	}
	return &Dir{root: abs, layout: l}, nil
}

// Root returns the cache directory.
func (d *Dir) Root() string { return d.root }

// Resolve implements Resolver.
func (d *Dir) Resolve(locator string) (string, error) {
	if locator == "" {
		return "", ErrEmptyLocator
	}

	host, p := split(locator)

	switch d.layout {
	case LayoutHashed:
		sum := digest(locator)
		return filepath.Join(d.root, sum[:2], sum+path.Ext(p)), nil

	case LayoutHost:
		if host == "" {
			host = "local"
		}
		rel := strings.TrimPrefix(path.Clean("/"+p), "/")
		if rel == "" {
			rel = digest(locator)
		}
		return filepath.Join(d.root, sanitize(host), filepath.FromSlash(rel)), nil

	default:
		base := path.Base(path.Clean("/" + p))
		if base == "/" || base == "." {
			base = digest(locator)
		}
		return filepath.Join(d.root, base), nil
	}
}

// split extracts the host and slash-separated path of a locator. Plain
// filesystem paths have no host.
func split(locator string) (host, p string) {
	if strings.Contains(locator, "://") {
		if u, err := url.Parse(locator); err == nil {
			return u.Host, u.Path
		}
	}
	return "", filepath.ToSlash(locator)
}

func digest(locator string) string {
	sum := blake2b.Sum256([]byte(locator))
	return hex.EncodeToString(sum[:])
}

func sanitize(host string) string {
	return strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(host)
}
