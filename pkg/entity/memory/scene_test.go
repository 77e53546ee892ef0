package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoio/pkg/entity"
)

func TestScene(t *testing.T) {
	s := NewScene()
	require.NoError(t, s.Add(NewNode("b", "http://host/b.vtk", nil)))
	require.NoError(t, s.Add(NewNode("a", "", nil)))

	assert.ErrorIs(t, s.Add(NewNode("a", "", nil)), ErrDuplicateID)
	assert.ErrorIs(t, s.Add(NewNode("", "", nil)), ErrEmptyID)

	e, ok := s.ResolveByID("b")
	require.True(t, ok)
	assert.Equal(t, "http://host/b.vtk", e.StorageDescriptor().Locator)

	ids := []string{}
	for _, e := range s.List() {
		ids = append(ids, e.ID())
	}
	assert.Equal(t, []string{"a", "b"}, ids)

	assert.True(t, s.Remove("b"))
	assert.False(t, s.Remove("b"))
	_, ok = s.ResolveByID("b")
	assert.False(t, ok)
}

func TestNodeStorage(t *testing.T) {
	n := NewNode("n", "", nil)
	assert.Nil(t, n.StorageDescriptor())

	n.SetStorage(&entity.StorageDescriptor{Locator: "s3://bucket/key"})
	d := n.StorageDescriptor()
	require.NotNil(t, d)
	d.Locator = "mutated"
	assert.Equal(t, "s3://bucket/key", n.StorageDescriptor().Locator)

	n.SetStorage(nil)
	assert.Nil(t, n.StorageDescriptor())
}
