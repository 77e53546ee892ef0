package transfer

import (
	"context"
	"time"
)

// RecordStore persists record snapshots. The Tracker writes every published
// snapshot through Save, so implementations see records in status order.
//
// Implementations must be safe for concurrent use. Get returns
// ErrRecordNotFound for unknown IDs. List returns records ordered by
// CreatedAt, oldest first.
type RecordStore interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, id ID) (Record, error)
	List(ctx context.Context, filter Filter) ([]Record, error)
	// DeleteFinishedBefore removes terminal records finished before cutoff
	// and returns how many were removed.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}
