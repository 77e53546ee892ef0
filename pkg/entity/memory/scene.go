// Package memory is an in-process entity.Model.
package memory

import (
	"errors"
	"sort"
	"sync"

	"github.com/marmos91/dittoio/pkg/entity"
	"github.com/marmos91/dittoio/pkg/handler"
)

var (
	// ErrDuplicateID is returned by Add when the ID is taken.
	ErrDuplicateID = errors.New("entity id already exists")

	// ErrEmptyID is returned by Add for entities without an ID.
	ErrEmptyID = errors.New("entity id is empty")
)

// Node is a basic entity with an optional storage descriptor.
type Node struct {
	mu      sync.RWMutex
	id      string
	storage *entity.StorageDescriptor
}

// NewNode returns a node. A node without a locator has no storage descriptor.
func NewNode(id, locator string, h handler.Handler) *Node {
	n := &Node{id: id}
	if locator != "" || h != nil {
		n.storage = &entity.StorageDescriptor{Locator: locator, Handler: h}
	}
	return n
}

func (n *Node) ID() string { return n.id }

func (n *Node) StorageDescriptor() *entity.StorageDescriptor {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.storage == nil {
		return nil
	}
	d := *n.storage
	return &d
}

// SetStorage replaces the node's storage descriptor. nil clears it.
func (n *Node) SetStorage(d *entity.StorageDescriptor) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if d == nil {
		n.storage = nil
		return
	}
	c := *d
	n.storage = &c
}

// Scene holds entities by ID.
type Scene struct {
	mu    sync.RWMutex
	nodes map[string]entity.Entity
}

var _ entity.Model = (*Scene)(nil)

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{nodes: make(map[string]entity.Entity)}
}

// Add inserts e.
func (s *Scene) Add(e entity.Entity) error {
	if e.ID() == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[e.ID()]; ok {
		return ErrDuplicateID
	}
	s.nodes[e.ID()] = e
	return nil
}

// Remove deletes the entity with the given ID and reports whether it existed.
func (s *Scene) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.nodes[id]
	delete(s.nodes, id)
	return ok
}

func (s *Scene) ResolveByID(id string) (entity.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.nodes[id]
	return e, ok
}

// List returns all entities ordered by ID.
func (s *Scene) List() []entity.Entity {
	s.mu.RLock()
	out := make([]entity.Entity, 0, len(s.nodes))
	for _, e := range s.nodes {
		out = append(out, e)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
