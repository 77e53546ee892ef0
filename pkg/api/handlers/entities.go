package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/marmos91/dittoio/internal/logger"
	"github.com/marmos91/dittoio/pkg/entity"
	"github.com/marmos91/dittoio/pkg/entity/memory"
	"github.com/marmos91/dittoio/pkg/handler"
	"github.com/marmos91/dittoio/pkg/iomanager"
)

// EntityStore is the mutable entity model behind the API.
type EntityStore interface {
	entity.Model
	Add(e entity.Entity) error
	Remove(id string) bool
	List() []entity.Entity
}

// HandlerLookup binds a locator to the handler of its scheme.
type HandlerLookup interface {
	Lookup(locator string) (handler.Handler, error)
}

// RequestPublisher publishes transfer requests for an entity.
type RequestPublisher interface {
	RequestRead(ctx context.Context, e entity.Entity) (int, error)
	RequestWrite(ctx context.Context, e entity.Entity) (int, error)
}

// EntityHandler manages entities and turns API calls into request events.
type EntityHandler struct {
	store     EntityStore
	handlers  HandlerLookup
	publisher RequestPublisher
}

// NewEntityHandler creates a new EntityHandler.
func NewEntityHandler(store EntityStore, handlers HandlerLookup, publisher RequestPublisher) *EntityHandler {
	return &EntityHandler{store: store, handlers: handlers, publisher: publisher}
}

// CreateEntityRequest is the request body for POST /api/v1/entities.
type CreateEntityRequest struct {
	ID      string `json:"id"`
	Locator string `json:"locator"`
}

// EntityResponse describes an entity and the handler bound to it.
type EntityResponse struct {
	ID       string `json:"id"`
	Locator  string `json:"locator,omitempty"`
	Handler  string `json:"handler,omitempty"`
	Writable bool   `json:"writable"`
}

// RequestResponse is returned when a request event was published.
type RequestResponse struct {
	EntityID  string `json:"entity_id"`
	Event     string `json:"event"`
	Listeners int    `json:"listeners"`
}

func toEntityResponse(e entity.Entity) EntityResponse {
	resp := EntityResponse{ID: e.ID()}
	if d := e.StorageDescriptor(); d != nil {
		resp.Locator = d.Locator
		if d.Handler != nil {
			resp.Handler = d.Handler.Name()
			resp.Writable = handler.CanWrite(d.Handler)
		}
	}
	return resp
}

// List handles GET /api/v1/entities.
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	entities := h.store.List()
	out := make([]EntityResponse, 0, len(entities))
	for _, e := range entities {
		out = append(out, toEntityResponse(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	WriteJSONOK(w, out)
}

// Get handles GET /api/v1/entities/{id}.
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, ok := h.store.ResolveByID(pathID(r))
	if !ok {
		NotFound(w, "Entity not found")
		return
	}
	WriteJSONOK(w, toEntityResponse(e))
}

// Create handles POST /api/v1/entities.
//
// The handler is chosen by the locator scheme. An entity without a locator
// is accepted and simply has nothing to transfer.
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEntityRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.ID == "" {
		BadRequest(w, "Entity id is required")
		return
	}

	var hd handler.Handler
	if req.Locator != "" {
		var err error
		hd, err = h.handlers.Lookup(req.Locator)
		if err != nil {
			if errors.Is(err, handler.ErrUnsupportedScheme) {
				WriteProblemWithType(w, ProblemTypeUnsupported, http.StatusUnprocessableEntity,
					"Unsupported Locator", err.Error())
				return
			}
			BadRequest(w, err.Error())
			return
		}
	}

	e := memory.NewNode(req.ID, req.Locator, hd)
	if err := h.store.Add(e); err != nil {
		switch {
		case errors.Is(err, memory.ErrDuplicateID):
			Conflict(w, "Entity already exists")
		case errors.Is(err, memory.ErrEmptyID):
			BadRequest(w, "Entity id is required")
		default:
			InternalServerError(w, "Failed to add entity")
		}
		return
	}

	logger.Info("Entity added", logger.EntityID(req.ID), logger.Locator(req.Locator))
	WriteJSONCreated(w, toEntityResponse(e))
}

// Delete handles DELETE /api/v1/entities/{id}.
//
// Transfers already recorded for the entity stay; pending ones will find
// the entity gone when they run.
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if !h.store.Remove(id) {
		NotFound(w, "Entity not found")
		return
	}
	logger.Info("Entity removed", logger.EntityID(id))
	WriteNoContent(w)
}

// RequestRead handles POST /api/v1/entities/{id}/read.
func (h *EntityHandler) RequestRead(w http.ResponseWriter, r *http.Request) {
	h.request(w, r, iomanager.RemoteReadRequested)
}

// RequestWrite handles POST /api/v1/entities/{id}/write.
func (h *EntityHandler) RequestWrite(w http.ResponseWriter, r *http.Request) {
	h.request(w, r, iomanager.RemoteWriteRequested)
}

// request publishes the event and answers 202: the outcome is observable
// through the transfers endpoints, not through this response.
func (h *EntityHandler) request(w http.ResponseWriter, r *http.Request, kind iomanager.Kind) {
	e, ok := h.store.ResolveByID(pathID(r))
	if !ok {
		NotFound(w, "Entity not found")
		return
	}

	if kind == iomanager.RemoteWriteRequested {
		if d := e.StorageDescriptor(); d != nil && d.Handler != nil && !handler.CanWrite(d.Handler) {
			WriteProblemWithType(w, ProblemTypeUnsupported, http.StatusUnprocessableEntity,
				"Unsupported Operation", "handler "+d.Handler.Name()+" cannot write")
			return
		}
	}

	// In synchronous mode the transfer runs inside this call; a client
	// hanging up must not abort it halfway.
	ctx := context.WithoutCancel(r.Context())

	var (
		n   int
		err error
	)
	if kind == iomanager.RemoteReadRequested {
		n, err = h.publisher.RequestRead(ctx, e)
	} else {
		n, err = h.publisher.RequestWrite(ctx, e)
	}
	if err != nil {
		if errors.Is(err, iomanager.ErrClosed) {
			ServiceUnavailable(w, "Request manager is shut down")
			return
		}
		InternalServerError(w, "Failed to publish request")
		return
	}

	WriteJSON(w, http.StatusAccepted, RequestResponse{
		EntityID:  e.ID(),
		Event:     kind.String(),
		Listeners: n,
	})
}
