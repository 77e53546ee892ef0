package bufpool

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolGetPut(t *testing.T) {
	p := New(16)
	assert.Equal(t, 16, p.Size())

	buf := p.Get()
	assert.Len(t, *buf, 16)

	*buf = (*buf)[:3]
	p.Put(buf)
	again := p.Get()
	assert.Len(t, *again, 16)

	foreign := make([]byte, 8)
	assert.NotPanics(t, func() { p.Put(&foreign) })
	assert.NotPanics(t, func() { p.Put(nil) })
}

func TestNewDefaultsSize(t *testing.T) {
	assert.Equal(t, DefaultSize, New(0).Size())
}

func TestCopy(t *testing.T) {
	src := strings.Repeat("dittoio", 10000)
	var dst bytes.Buffer

	n, err := New(64).Copy(context.Background(), &dst, strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, int64(len(src)), n)
	assert.Equal(t, src, dst.String())
}

type cancelAfterFirstRead struct {
	r      io.Reader
	cancel context.CancelFunc
}

func (c *cancelAfterFirstRead) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.cancel()
	return n, err
}

func TestCopyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &cancelAfterFirstRead{r: strings.NewReader(strings.Repeat("x", 1000)), cancel: cancel}
	var dst bytes.Buffer
	n, err := New(10).Copy(ctx, &dst, src)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(10), n)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestCopyWriteError(t *testing.T) {
	_, err := Copy(context.Background(), failingWriter{}, strings.NewReader("data"))
	assert.EqualError(t, err, "disk full")
}

func TestCopyConcurrent(t *testing.T) {
	p := New(32)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var dst bytes.Buffer
			n, err := p.Copy(context.Background(), &dst, strings.NewReader(strings.Repeat("a", 1000)))
			assert.NoError(t, err)
			assert.Equal(t, int64(1000), n)
		}()
	}
	wg.Wait()
}
