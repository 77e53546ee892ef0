package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Problem type URIs returned by the server.
const (
	ProblemTypeRejected    = "urn:dittoio:problem:rejected"
	ProblemTypeUnsupported = "urn:dittoio:problem:unsupported"
)

// APIError is an RFC 7807 problem returned by the API.
type APIError struct {
	StatusCode int    `json:"status"`
	Type       string `json:"type,omitempty"`
	Title      string `json:"title"`
	Detail     string `json:"detail,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return e.Title
}

// IsNotFound returns true if this is a not found error.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsConflict returns true if this is a conflict error.
func (e *APIError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict
}

// IsUnsupported returns true when the locator scheme or operation has no
// handler.
func (e *APIError) IsUnsupported() bool {
	return e.Type == ProblemTypeUnsupported
}

// IsUnavailable returns true when the server cannot take requests.
func (e *APIError) IsUnavailable() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}

// IsNotFound reports whether err is an APIError for a missing resource.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}
