package handler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/marmos91/dittoio/internal/bytesize"
	"github.com/marmos91/dittoio/pkg/bufpool"
)

const tempPrefix = ".dittoio-"

// LocalFS returns the host filesystem. Paths given to it are absolute.
func LocalFS() billy.Filesystem {
	return osfs.New("/")
}

// WriteAtomic streams r into name on fsys. Data goes to a temporary file in
// the destination directory that is renamed over name once complete, so
// readers never observe a partial file. The temporary file is removed on
// failure.
func WriteAtomic(ctx context.Context, fsys billy.Filesystem, name string, r io.Reader) (int64, error) {
	dir := path.Dir(name)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory %q: %w", dir, err)
	}

	tmp, err := fsys.TempFile(dir, tempPrefix)
	if err != nil {
		return 0, fmt.Errorf("create temp file in %q: %w", dir, err)
	}
	tmpName := tmp.Name()

	n, err := bufpool.Copy(ctx, tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = fsys.Remove(tmpName)
		return n, fmt.Errorf("write %q: %w", name, err)
	}

	if err := fsys.Rename(tmpName, name); err != nil {
		_ = fsys.Remove(tmpName)
		return n, fmt.Errorf("rename into %q: %w", name, err)
	}
	return n, nil
}

// OpenSource opens a local file for reading, mapping a missing file to
// ErrSourceNotFound.
func OpenSource(fsys billy.Filesystem, name string) (billy.File, os.FileInfo, error) {
	info, err := fsys.Stat(name)
	if os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("stat %q: %w", name, err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is a directory", ErrInvalidLocator, name)
	}

	f, err := fsys.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open %q: %w", name, err)
	}
	return f, info, nil
}

// ContextReader returns a reader that fails with ctx's error once ctx is done.
func ContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// LimitReader returns a reader that fails with ErrTooLarge once more than
// max bytes have been read. Zero means no limit.
func LimitReader(r io.Reader, max bytesize.ByteSize) io.Reader {
	if max == 0 {
		return r
	}
	return &limitReader{r: r, left: max.Int64()}
}

type limitReader struct {
	r    io.Reader
	left int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.left < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > l.left+1 {
		p = p[:l.left+1]
	}
	n, err := l.r.Read(p)
	l.left -= int64(n)
	if l.left < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

// CheckSize fails with ErrTooLarge when a known size exceeds max. Negative
// sizes are unknown and pass.
func CheckSize(size int64, max bytesize.ByteSize) error {
	if max == 0 || size < 0 || size <= max.Int64() {
		return nil
	}
	return fmt.Errorf("%w: %s exceeds %s", ErrTooLarge, bytesize.ByteSize(size), max)
}
