package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/marmos91/dittoio/pkg/transfer"
)

// TransferHandler serves transfer records from the Tracker.
type TransferHandler struct {
	tracker *transfer.Tracker
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(tracker *transfer.Tracker) *TransferHandler {
	return &TransferHandler{tracker: tracker}
}

// List handles GET /api/v1/transfers.
//
// Query parameters (all optional): entity, status, direction, limit.
func (h *TransferHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := transfer.Filter{EntityID: q.Get("entity")}

	if s := q.Get("status"); s != "" {
		status, err := transfer.ParseStatus(s)
		if err != nil {
			BadRequest(w, err.Error())
			return
		}
		filter.Status = &status
	}
	if d := q.Get("direction"); d != "" {
		dir, err := transfer.ParseDirection(d)
		if err != nil {
			BadRequest(w, err.Error())
			return
		}
		filter.Direction = &dir
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			BadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	WriteJSONOK(w, h.tracker.List(filter))
}

// Get handles GET /api/v1/transfers/{id}.
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := transfer.ID(pathID(r))

	rec, err := h.tracker.Get(id)
	if err != nil {
		if errors.Is(err, transfer.ErrRecordNotFound) {
			NotFound(w, "Transfer not found")
			return
		}
		InternalServerError(w, "Failed to get transfer")
		return
	}
	WriteJSONOK(w, rec)
}

// Counts handles GET /api/v1/transfers/summary: record counts by status.
func (h *TransferHandler) Counts(w http.ResponseWriter, r *http.Request) {
	counts := h.tracker.Counts()
	out := make(map[string]int, len(counts))
	for status, n := range counts {
		out[status.String()] = n
	}
	WriteJSONOK(w, out)
}
