// Package http implements a handler for http:// and https:// locators.
//
// Reads are plain GETs. Writes PUT the local file with a sniffed
// Content-Type, which works against WebDAV servers and presigned URLs.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"

	"github.com/marmos91/dittoio/internal/bytesize"
	"github.com/marmos91/dittoio/internal/logger"
	"github.com/marmos91/dittoio/pkg/handler"
)

// Name is the handler name recorded on transfers.
const Name = "http"

// Config configures the HTTP handler.
type Config struct {
	// Timeout bounds a whole request including the body. Zero disables it.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// UserAgent is sent with every request.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`

	// Headers are added to every request (e.g. Authorization).
	Headers map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`

	// MaxSize rejects downloads larger than this ("512Mi", "2GB"). Zero
	// disables the limit.
	MaxSize bytesize.ByteSize `mapstructure:"max_size" yaml:"max_size,omitempty"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.Code, nethttp.StatusText(e.Code))
}

// Handler transfers resources over HTTP.
type Handler struct {
	client *nethttp.Client
	cfg    Config
	local  billy.Filesystem
}

var _ handler.Writer = (*Handler)(nil)

// Option customizes a Handler.
type Option func(*Handler)

// WithClient replaces the HTTP client.
func WithClient(c *nethttp.Client) Option {
	return func(h *Handler) { h.client = c }
}

// WithLocalFS replaces the filesystem holding cache files.
func WithLocalFS(fsys billy.Filesystem) Option {
	return func(h *Handler) { h.local = fsys }
}

// New returns an HTTP handler.
func New(cfg Config, opts ...Option) *Handler {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "dittoio"
	}
	h := &Handler{
		client: &nethttp.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		local:  handler.LocalFS(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Name() string { return Name }

// StageRead downloads source into the local file destination.
func (h *Handler) StageRead(ctx context.Context, source, destination string) error {
	u, err := parse(source)
	if err != nil {
		return err
	}

	start := time.Now()
	req, err := h.newRequest(ctx, nethttp.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", redact(u), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == nethttp.StatusNotFound || resp.StatusCode == nethttp.StatusGone:
		return fmt.Errorf("%w: %s", handler.ErrSourceNotFound, redact(u))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &StatusError{Method: nethttp.MethodGet, URL: redact(u), Code: resp.StatusCode}
	}

	if err := handler.CheckSize(resp.ContentLength, h.cfg.MaxSize); err != nil {
		return fmt.Errorf("GET %s: %w", redact(u), err)
	}

	body := handler.LimitReader(resp.Body, h.cfg.MaxSize)
	n, err := handler.WriteAtomic(ctx, h.local, filepath.Clean(destination), body)
	if err != nil {
		return err
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return fmt.Errorf("GET %s: short body, got %d of %d bytes", redact(u), n, resp.ContentLength)
	}

	logger.DebugCtx(ctx, "Downloaded resource",
		logger.Handler(Name),
		logger.Locator(redact(u)),
		logger.Destination(destination),
		logger.Size(n),
		logger.DurationMs(time.Since(start)))
	return nil
}

// StageWrite uploads the local file source to destination with PUT.
func (h *Handler) StageWrite(ctx context.Context, source, destination string) error {
	u, err := parse(destination)
	if err != nil {
		return err
	}

	start := time.Now()
	f, info, err := handler.OpenSource(h.local, filepath.Clean(source))
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectReader(f); err == nil {
		contentType = mt.String()
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind %s: %w", source, err)
	}

	req, err := h.newRequest(ctx, nethttp.MethodPut, u, handler.ContextReader(ctx, f))
	if err != nil {
		return err
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", contentType)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("PUT %s: %w", redact(u), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: nethttp.MethodPut, URL: redact(u), Code: resp.StatusCode}
	}

	logger.DebugCtx(ctx, "Uploaded resource",
		logger.Handler(Name),
		logger.Path(source),
		logger.Locator(redact(u)),
		logger.Size(info.Size()),
		"content_type", contentType,
		logger.DurationMs(time.Since(start)))
	return nil
}

func (h *Handler) newRequest(ctx context.Context, method string, u *url.URL, body io.Reader) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", handler.ErrInvalidLocator, err)
	}
	req.Header.Set("User-Agent", h.cfg.UserAgent)
	for k, v := range h.cfg.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func parse(locator string) (*url.URL, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", handler.ErrInvalidLocator, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: %q", handler.ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", handler.ErrInvalidLocator, locator)
	}
	return u, nil
}

// redact drops credentials and query strings (presigned signatures) from
// URLs that end up in logs and errors.
func redact(u *url.URL) string {
	c := *u
	c.User = nil
	c.RawQuery = ""
	return c.String()
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
