package handler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoio/pkg/handler"
)

type readOnly struct{ name string }

func (r readOnly) Name() string { return r.name }

func (readOnly) StageRead(context.Context, string, string) error { return nil }

type readWrite struct{ readOnly }

func (readWrite) StageWrite(context.Context, string, string) error { return nil }

func TestRegistryLookup(t *testing.T) {
	r := handler.NewRegistry()
	web := readOnly{name: "http"}
	local := readWrite{readOnly{name: "fs"}}
	r.Register(web, "http", "HTTPS")
	r.Register(local, handler.FileScheme)

	h, err := r.Lookup("https://example.org/a.vtk")
	require.NoError(t, err)
	assert.Equal(t, "http", h.Name())

	h, err = r.Lookup("/data/a.vtk")
	require.NoError(t, err)
	assert.Equal(t, "fs", h.Name())

	h, err = r.Lookup("FILE:///data/a.vtk")
	require.NoError(t, err)
	assert.Equal(t, "fs", h.Name())

	_, err = r.Lookup("ftp://example.org/a.vtk")
	assert.ErrorIs(t, err, handler.ErrUnsupportedScheme)

	_, err = r.Lookup("")
	assert.ErrorIs(t, err, handler.ErrInvalidLocator)

	assert.Equal(t, []string{"file", "http", "https"}, r.Schemes())
}

func TestRegistryReplace(t *testing.T) {
	r := handler.NewRegistry()
	r.Register(readOnly{name: "first"}, "s3")
	r.Register(readOnly{name: "second"}, "s3")

	h, err := r.Lookup("s3://bucket/key")
	require.NoError(t, err)
	assert.Equal(t, "second", h.Name())
}

func TestCanWrite(t *testing.T) {
	assert.False(t, handler.CanWrite(readOnly{}))
	assert.True(t, handler.CanWrite(readWrite{}))
}

func TestScheme(t *testing.T) {
	tests := map[string]string{
		"http://host/a":   "http",
		"S3://bucket/key": "s3",
		"relative/a.vtk":  "file",
		"/abs/a.vtk":      "file",
		"file:///abs/a":   "file",
	}
	for locator, want := range tests {
		got, err := handler.Scheme(locator)
		require.NoError(t, err, locator)
		assert.Equal(t, want, got, locator)
	}
}
