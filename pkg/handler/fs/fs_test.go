package fs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoio/pkg/handler"
	"github.com/marmos91/dittoio/pkg/handler/fs"
)

func TestStageRead(t *testing.T) {
	mem := memfs.New()
	require.NoError(t, util.WriteFile(mem, "/data/mesh.vtk", []byte("vtk payload"), 0o644))

	h := fs.New(mem)
	err := h.StageRead(context.Background(), "file:///data/mesh.vtk", "/cache/mesh.vtk")
	require.NoError(t, err)

	got, err := util.ReadFile(mem, "/cache/mesh.vtk")
	require.NoError(t, err)
	assert.Equal(t, "vtk payload", string(got))

	entries, err := mem.ReadDir("/cache")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestStageReadBarePath(t *testing.T) {
	mem := memfs.New()
	require.NoError(t, util.WriteFile(mem, "/data/a.raw", []byte("x"), 0o644))

	h := fs.New(mem)
	require.NoError(t, h.StageRead(context.Background(), "/data/a.raw", "/cache/a.raw"))

	ok, err := util.ReadFile(mem, "/cache/a.raw")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), ok)
}

func TestStageReadOverwrites(t *testing.T) {
	mem := memfs.New()
	require.NoError(t, util.WriteFile(mem, "/data/a.raw", []byte("new"), 0o644))
	require.NoError(t, util.WriteFile(mem, "/cache/a.raw", []byte("old contents"), 0o644))

	require.NoError(t, fs.New(mem).StageRead(context.Background(), "/data/a.raw", "/cache/a.raw"))

	got, err := util.ReadFile(mem, "/cache/a.raw")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestStageReadMissingSource(t *testing.T) {
	h := fs.New(memfs.New())
	err := h.StageRead(context.Background(), "/nowhere/a.vtk", "/cache/a.vtk")
	assert.True(t, errors.Is(err, handler.ErrSourceNotFound), "got %v", err)
}

func TestStageReadDirectorySource(t *testing.T) {
	mem := memfs.New()
	require.NoError(t, mem.MkdirAll("/data/dir", 0o755))

	err := fs.New(mem).StageRead(context.Background(), "/data/dir", "/cache/dir")
	assert.ErrorIs(t, err, handler.ErrInvalidLocator)
}

func TestStageReadCanceled(t *testing.T) {
	mem := memfs.New()
	require.NoError(t, util.WriteFile(mem, "/data/a.raw", []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fs.New(mem).StageRead(ctx, "/data/a.raw", "/cache/a.raw")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = mem.Stat("/cache/a.raw")
	assert.Error(t, err)
}

func TestStageWrite(t *testing.T) {
	mem := memfs.New()
	require.NoError(t, util.WriteFile(mem, "/cache/out.vtu", []byte("result"), 0o644))

	h := fs.New(mem)
	require.True(t, handler.CanWrite(h))
	require.NoError(t, h.StageWrite(context.Background(), "/cache/out.vtu", "file:///exports/run1/out.vtu"))

	got, err := util.ReadFile(mem, "/exports/run1/out.vtu")
	require.NoError(t, err)
	assert.Equal(t, "result", string(got))
}

func TestSameSourceAndDestination(t *testing.T) {
	mem := memfs.New()
	require.NoError(t, util.WriteFile(mem, "/data/a.raw", []byte("x"), 0o644))

	err := fs.New(mem).StageRead(context.Background(), "/data/a.raw", "/data/a.raw")
	assert.ErrorIs(t, err, handler.ErrInvalidLocator)
}

func TestPath(t *testing.T) {
	tests := []struct {
		locator string
		want    string
		wantErr error
	}{
		{locator: "file:///data/a.vtk", want: "/data/a.vtk"},
		{locator: "file://localhost/data/a.vtk", want: "/data/a.vtk"},
		{locator: "/data/../data/a.vtk", want: "/data/a.vtk"},
		{locator: "http://host/a.vtk", wantErr: handler.ErrUnsupportedScheme},
		{locator: "file://fileserver/data/a.vtk", wantErr: handler.ErrInvalidLocator},
		{locator: "", wantErr: handler.ErrInvalidLocator},
	}
	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			got, err := fs.Path(tt.locator)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
