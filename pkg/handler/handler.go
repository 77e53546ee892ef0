// Package handler defines the capability that moves bytes between a remote
// locator and a local cache path, and a registry that selects an
// implementation by locator scheme.
//
// Implementations live in subpackages (fs, http, s3). Calls are blocking;
// callers decide on which goroutine they run.
package handler

import (
	"context"
	"errors"
)

var (
	// ErrUnsupportedScheme is returned when no handler serves a locator's scheme.
	ErrUnsupportedScheme = errors.New("unsupported locator scheme")

	// ErrSourceNotFound is returned when the remote (or local) source does not exist.
	ErrSourceNotFound = errors.New("source not found")

	// ErrInvalidLocator is returned for locators a handler cannot parse.
	ErrInvalidLocator = errors.New("invalid locator")

	// ErrTooLarge is returned when a resource exceeds a handler's max_size.
	ErrTooLarge = errors.New("resource too large")
)

// Handler stages remote resources into the local cache.
type Handler interface {
	// Name identifies the implementation ("fs", "http", "s3").
	Name() string

	// StageRead copies the resource at source into the local file destination.
	StageRead(ctx context.Context, source, destination string) error
}

// Writer is implemented by handlers that can also push a local file to a
// remote locator. Handlers that are not Writers make write requests
// unsupported.
type Writer interface {
	Handler

	// StageWrite copies the local file source to the remote locator destination.
	StageWrite(ctx context.Context, source, destination string) error
}

// CanWrite reports whether h supports StageWrite.
func CanWrite(h Handler) bool {
	_, ok := h.(Writer)
	return ok
}
