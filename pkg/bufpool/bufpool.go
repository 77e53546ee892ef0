// Package bufpool pools the copy buffers used when streaming resources
// into the cache.
//
// Concurrent transfers each hold one buffer for the duration of a copy;
// returning it to the pool keeps steady-state allocations flat regardless
// of resource size.
package bufpool

import (
	"context"
	"io"
	"sync"
)

// DefaultSize is the buffer size of the package-level pool (256KiB).
const DefaultSize = 256 << 10

// Pool hands out fixed-size byte slices.
type Pool struct {
	size int
	pool sync.Pool
}

// New returns a pool of size-byte buffers. Non-positive sizes use
// DefaultSize.
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	p := &Pool{size: size}
	p.pool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return p
}

// Size returns the length of buffers returned by Get.
func (p *Pool) Size() int { return p.size }

// Get returns a buffer of Size bytes. Return it with Put.
func (p *Pool) Get() *[]byte {
	return p.pool.Get().(*[]byte)
}

// Put returns buf to the pool. Buffers of a foreign size are dropped.
func (p *Pool) Put(buf *[]byte) {
	if buf == nil || cap(*buf) != p.size {
		return
	}
	*buf = (*buf)[:p.size]
	p.pool.Put(buf)
}

// Copy copies src to dst through a pooled buffer, checking ctx between
// chunks. Unlike io.CopyBuffer it never defers to ReaderFrom or WriterTo,
// so cancellation is observed on every chunk.
func (p *Pool) Copy(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	bufp := p.Get()
	defer p.Put(bufp)
	buf := *bufp

	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

var defaultPool = New(DefaultSize)

// Copy copies src to dst using the package-level pool.
func Copy(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	return defaultPool.Copy(ctx, dst, src)
}
