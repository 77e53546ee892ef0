package cache

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatLayout(t *testing.T) {
	d, err := NewDir("/cache", LayoutFlat)
	require.NoError(t, err)

	tests := map[string]string{
		"http://host/a.vtk":            "/cache/a.vtk",
		"https://host/data/sub/b.nrrd": "/cache/b.nrrd",
		"s3://bucket/prefix/c.mha":     "/cache/c.mha",
		"/srv/data/d.vtp":              "/cache/d.vtp",
		"http://host/../../etc/passwd": "/cache/passwd",
		"file:///home/user/scene.mrml": "/cache/scene.mrml",
	}
	for in, want := range tests {
		got, err := d.Resolve(in)
		require.NoError(t, err, in)
		assert.Equal(t, filepath.FromSlash(want), got, in)
	}
}

func TestFlatLayoutWithoutBaseName(t *testing.T) {
	d, _ := NewDir("/cache", "")
	a, err := d.Resolve("http://host/")
	require.NoError(t, err)
	b, err := d.Resolve("http://other/")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, filepath.FromSlash("/cache"), filepath.Dir(a))
	assert.Len(t, filepath.Base(a), 64)
}

func TestHostLayout(t *testing.T) {
	d, _ := NewDir("/cache", LayoutHost)

	got, err := d.Resolve("http://host:8080/a/b.vtk")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/cache/host_8080/a/b.vtk"), got)

	got, err = d.Resolve("/data/x.vtk")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/cache/local/data/x.vtk"), got)

	got, err = d.Resolve("http://host/../../x")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, filepath.FromSlash("/cache/host/")), got)
}

func TestHashedLayout(t *testing.T) {
	d, _ := NewDir("/cache", LayoutHashed)

	a, err := d.Resolve("http://one/a.vtk")
	require.NoError(t, err)
	b, err := d.Resolve("http://two/a.vtk")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, ".vtk", filepath.Ext(a))
	assert.Equal(t, filepath.Base(a)[:2], filepath.Base(filepath.Dir(a)))

	again, _ := d.Resolve("http://one/a.vtk")
	assert.Equal(t, a, again)
}

func TestResolveErrors(t *testing.T) {
	d, _ := NewDir("/cache", LayoutFlat)
	_, err := d.Resolve("")
	assert.ErrorIs(t, err, ErrEmptyLocator)

	_, err = NewDir("", LayoutFlat)
	assert.Error(t, err)

	_, err = NewDir("/cache", "tree")
	assert.Error(t, err)
}
