// Package fs implements a handler for locators on a mounted filesystem:
// "file:///abs/path" or a bare path.
package fs

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/marmos91/dittoio/internal/logger"
	"github.com/marmos91/dittoio/pkg/handler"
)

// Name is the handler name recorded on transfers.
const Name = "fs"

// Handler copies files within a billy filesystem.
type Handler struct {
	fsys billy.Filesystem
}

var _ handler.Writer = (*Handler)(nil)

// New returns a handler operating on fsys.
func New(fsys billy.Filesystem) *Handler {
	return &Handler{fsys: fsys}
}

// NewOS returns a handler operating on the host filesystem.
func NewOS() *Handler {
	return New(handler.LocalFS())
}

func (h *Handler) Name() string { return Name }

// StageRead copies the file named by source to destination.
func (h *Handler) StageRead(ctx context.Context, source, destination string) error {
	src, err := Path(source)
	if err != nil {
		return err
	}
	return h.copy(ctx, src, filepath.Clean(destination))
}

// StageWrite copies the local file source to the file named by destination.
func (h *Handler) StageWrite(ctx context.Context, source, destination string) error {
	dst, err := Path(destination)
	if err != nil {
		return err
	}
	return h.copy(ctx, filepath.Clean(source), dst)
}

func (h *Handler) copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if src == dst {
		return fmt.Errorf("%w: source and destination are both %s", handler.ErrInvalidLocator, src)
	}

	start := time.Now()
	f, _, err := handler.OpenSource(h.fsys, src)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := handler.WriteAtomic(ctx, h.fsys, dst, f)
	if err != nil {
		return err
	}

	logger.DebugCtx(ctx, "Copied file",
		logger.Handler(Name),
		logger.Path(src),
		logger.Destination(dst),
		logger.Size(n),
		logger.DurationMs(time.Since(start)))
	return nil
}

// Path converts a file locator to an absolute, cleaned path.
func Path(locator string) (string, error) {
	p := locator
	if strings.Contains(locator, "://") {
		u, err := url.Parse(locator)
		if err != nil {
			return "", fmt.Errorf("%w: %v", handler.ErrInvalidLocator, err)
		}
		if !strings.EqualFold(u.Scheme, handler.FileScheme) {
			return "", fmt.Errorf("%w: %q", handler.ErrUnsupportedScheme, u.Scheme)
		}
		if u.Host != "" && u.Host != "localhost" {
			return "", fmt.Errorf("%w: remote host %q in file locator", handler.ErrInvalidLocator, u.Host)
		}
		p = u.Path
	}
	if p == "" {
		return "", fmt.Errorf("%w: empty path", handler.ErrInvalidLocator)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", handler.ErrInvalidLocator, err)
	}
	return abs, nil
}
