// Package entity describes the host data model the orchestrator serves:
// entities that may reference a remote resource, and a model that resolves
// them by identity.
package entity

import "github.com/marmos91/dittoio/pkg/handler"

// StorageDescriptor tells where an entity's data lives remotely and which
// handler moves it.
type StorageDescriptor struct {
	Locator string
	Handler handler.Handler
}

// Entity is an object of the host model.
type Entity interface {
	ID() string

	// StorageDescriptor returns nil when the entity has no remote storage.
	StorageDescriptor() *StorageDescriptor
}

// Model resolves entities by identity. The second result is false when the
// entity no longer exists.
type Model interface {
	ResolveByID(id string) (Entity, bool)
}
