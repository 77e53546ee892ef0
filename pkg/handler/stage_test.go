package handler

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoio/internal/bytesize"
)

func TestWriteAtomic(t *testing.T) {
	mem := memfs.New()
	n, err := WriteAtomic(context.Background(), mem, "/cache/sub/a.vtk", strings.NewReader("mesh"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	got, err := util.ReadFile(mem, "/cache/sub/a.vtk")
	require.NoError(t, err)
	assert.Equal(t, "mesh", string(got))

	entries, err := mem.ReadDir("/cache/sub")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteAtomicRemovesTempOnError(t *testing.T) {
	mem := memfs.New()
	r := LimitReader(strings.NewReader(strings.Repeat("x", 100)), 10)

	_, err := WriteAtomic(context.Background(), mem, "/cache/a", r)
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := mem.ReadDir("/cache")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteAtomicCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mem := memfs.New()
	_, err := WriteAtomic(ctx, mem, "/cache/a", strings.NewReader("data"))
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := mem.Stat("/cache/a")
	assert.Error(t, statErr)
}

func TestLimitReader(t *testing.T) {
	got, err := io.ReadAll(LimitReader(strings.NewReader("12345"), 5))
	require.NoError(t, err)
	assert.Equal(t, "12345", string(got))

	_, err = io.ReadAll(LimitReader(strings.NewReader("123456"), 5))
	assert.ErrorIs(t, err, ErrTooLarge)

	got, err = io.ReadAll(LimitReader(strings.NewReader("unbounded"), 0))
	require.NoError(t, err)
	assert.Equal(t, "unbounded", string(got))
}

func TestCheckSize(t *testing.T) {
	assert.NoError(t, CheckSize(100, 0))
	assert.NoError(t, CheckSize(-1, bytesize.KiB))
	assert.NoError(t, CheckSize(1024, bytesize.KiB))
	assert.ErrorIs(t, CheckSize(1025, bytesize.KiB), ErrTooLarge)
}
