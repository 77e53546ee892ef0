package apiclient

import (
	"net/url"
)

// Entity is an entity known to the server.
type Entity struct {
	ID       string `json:"id"`
	Locator  string `json:"locator,omitempty"`
	Handler  string `json:"handler,omitempty"`
	Writable bool   `json:"writable"`
}

// CreateEntityRequest is the body of CreateEntity.
type CreateEntityRequest struct {
	ID      string `json:"id"`
	Locator string `json:"locator"`
}

// RequestAccepted acknowledges a published read or write request.
type RequestAccepted struct {
	EntityID  string `json:"entity_id"`
	Event     string `json:"event"`
	Listeners int    `json:"listeners"`
}

// ListEntities returns all entities sorted by id.
func (c *Client) ListEntities() ([]Entity, error) {
	return listResources[Entity](c, "/api/v1/entities")
}

// GetEntity returns a single entity.
func (c *Client) GetEntity(id string) (*Entity, error) {
	return getResource[Entity](c, entityPath(id))
}

// CreateEntity registers an entity bound to locator.
func (c *Client) CreateEntity(id, locator string) (*Entity, error) {
	var out Entity
	if err := c.post("/api/v1/entities", CreateEntityRequest{ID: id, Locator: locator}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteEntity removes an entity.
func (c *Client) DeleteEntity(id string) error {
	return c.delete(entityPath(id), nil)
}

// RequestRead asks the server to fetch the entity's resource.
func (c *Client) RequestRead(id string) (*RequestAccepted, error) {
	var out RequestAccepted
	if err := c.post(entityPath(id)+"/read", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestWrite asks the server to push the entity's cached file.
func (c *Client) RequestWrite(id string) (*RequestAccepted, error) {
	var out RequestAccepted
	if err := c.post(entityPath(id)+"/write", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func entityPath(id string) string {
	return "/api/v1/entities/" + url.PathEscape(id)
}
