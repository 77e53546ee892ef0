// Package transfer holds the transfer record model and the Tracker that owns
// every record created by the orchestrator.
//
// A record is created once per accepted request, moves forward through its
// statuses under the Tracker's lock, and is announced to observers after each
// change. Persistence of records is delegated to a RecordStore.
package transfer

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/dittoio/pkg/handler"
)

var (
	// ErrRecordNotFound is returned when no record has the requested ID.
	ErrRecordNotFound = errors.New("transfer record not found")

	// ErrInvalidTransition is returned when a status change would move a
	// record backwards or out of a terminal status.
	ErrInvalidTransition = errors.New("invalid transfer status transition")

	// ErrInvalidSpec is returned by Create for incomplete specs.
	ErrInvalidSpec = errors.New("invalid transfer spec")
)

// ID identifies a transfer record.
type ID string

// NewID returns a fresh random ID.
func NewID() ID { return ID(uuid.NewString()) }

func (id ID) String() string { return string(id) }

// Record is a snapshot of one transfer.
type Record struct {
	ID ID `json:"id"`

	// EntityID refers to the requesting entity by identity. The entity is
	// looked up again at dispatch time and may have disappeared.
	EntityID string `json:"entity_id"`

	SourceLocator   string    `json:"source_locator"`
	DestinationPath string    `json:"destination_path"`
	Direction       Direction `json:"direction"`
	Status          Status    `json:"status"`

	// Handler performs the transfer. It is only set on records created by
	// this process and is never persisted; HandlerName is.
	Handler     handler.Handler `json:"-"`
	HandlerName string          `json:"handler,omitempty"`

	// Error holds the failure message of a Failed record.
	Error string `json:"error,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration returns how long the handler ran, or zero if it has not finished.
func (r Record) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

func (r Record) clone() Record {
	if r.StartedAt != nil {
		t := *r.StartedAt
		r.StartedAt = &t
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		r.FinishedAt = &t
	}
	return r
}

// Spec describes a record to create.
type Spec struct {
	EntityID        string
	SourceLocator   string
	DestinationPath string
	Direction       Direction
	Handler         handler.Handler
}

func (s Spec) validate() error {
	switch {
	case s.EntityID == "":
		return errors.Join(ErrInvalidSpec, errors.New("entity id is required"))
	case s.SourceLocator == "":
		return errors.Join(ErrInvalidSpec, errors.New("source locator is required"))
	case s.DestinationPath == "":
		return errors.Join(ErrInvalidSpec, errors.New("destination path is required"))
	case !s.Direction.Valid():
		return errors.Join(ErrInvalidSpec, errors.New("unknown direction"))
	case s.Handler == nil:
		return errors.Join(ErrInvalidSpec, errors.New("handler is required"))
	}
	return nil
}

// Filter selects records in List calls. Zero fields match everything.
type Filter struct {
	EntityID  string
	Direction *Direction
	Status    *Status
	// Limit caps the number of results when positive.
	Limit int
}

// Match reports whether r satisfies f (ignoring Limit).
func (f Filter) Match(r Record) bool {
	if f.EntityID != "" && r.EntityID != f.EntityID {
		return false
	}
	if f.Direction != nil && r.Direction != *f.Direction {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	return true
}
