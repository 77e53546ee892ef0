package transfer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/dittoio/internal/logger"
)

// Tracker owns the transfer records of a process.
//
// All creation and status mutation goes through Create and SetStatus, which
// serialize on a single lock. Each change is then persisted and announced to
// observers; announcements are delivered in mutation order.
type Tracker struct {
	mu      sync.RWMutex
	records map[ID]*entry
	seq     uint64

	// publishMu is taken before mu and held across publication, so
	// publications happen in mutation order. mu is never held while waiting
	// for publishMu, so observers may read the tracker.
	publishMu sync.Mutex

	obsMu     sync.RWMutex
	observers map[uint64]Observer
	nextObs   uint64

	store RecordStore
	now   func() time.Time
}

type entry struct {
	rec Record
	seq uint64
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithStore persists every published snapshot to s.
func WithStore(s RecordStore) TrackerOption {
	return func(t *Tracker) { t.store = s }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker returns an empty tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		records:   make(map[ID]*entry),
		observers: make(map[uint64]Observer),
		now:       time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Create registers a new record in status Unspecified and publishes it.
func (t *Tracker) Create(ctx context.Context, spec Spec) (Record, error) {
	if err := spec.validate(); err != nil {
		return Record{}, err
	}

	now := t.now()
	rec := Record{
		ID:              NewID(),
		EntityID:        spec.EntityID,
		SourceLocator:   spec.SourceLocator,
		DestinationPath: spec.DestinationPath,
		Direction:       spec.Direction,
		Status:          Unspecified,
		Handler:         spec.Handler,
		HandlerName:     spec.Handler.Name(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	t.publishMu.Lock()
	defer t.publishMu.Unlock()

	t.mu.Lock()
	t.seq++
	t.records[rec.ID] = &entry{rec: rec, seq: t.seq}
	snap := rec.clone()
	t.mu.Unlock()

	t.publish(ctx, snap)
	return snap, nil
}

// SetStatus moves record id to status. cause is recorded as the failure
// message when status is Failed and ignored otherwise.
//
// It returns ErrRecordNotFound for unknown IDs and ErrInvalidTransition when
// status does not rank above the current one or the record is terminal.
func (t *Tracker) SetStatus(ctx context.Context, id ID, status Status, cause error) (Record, error) {
	t.publishMu.Lock()
	defer t.publishMu.Unlock()

	t.mu.Lock()
	e, ok := t.records[id]
	if !ok {
		t.mu.Unlock()
		return Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	if !e.rec.Status.CanTransitionTo(status) {
		from := e.rec.Status
		t.mu.Unlock()
		return Record{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, status)
	}

	now := t.now()
	e.rec.Status = status
	e.rec.UpdatedAt = now
	switch status {
	case InProgress:
		e.rec.StartedAt = &now
	case Completed, Failed:
		e.rec.FinishedAt = &now
		if status == Failed {
			e.rec.Error = "unknown error"
			if cause != nil {
				e.rec.Error = cause.Error()
			}
		}
	}

	snap := e.rec.clone()
	t.mu.Unlock()

	t.publish(ctx, snap)
	return snap, nil
}

// publish persists snap and announces it. Callers hold publishMu.
//
// The snapshot is saved even when ctx is already done: a transfer whose
// task deadline expires as the handler returns must still persist its
// terminal status.
func (t *Tracker) publish(ctx context.Context, snap Record) {
	if t.store != nil {
		if err := t.store.Save(context.WithoutCancel(ctx), snap); err != nil {
			logger.WarnCtx(ctx, "Failed to persist transfer record",
				logger.TransferID(snap.ID.String()),
				logger.Status(snap.Status.String()),
				logger.Err(err))
		}
	}

	for _, o := range t.observerList() {
		o.OnStatusChanged(snap.clone())
	}
}

func (t *Tracker) observerList() []Observer {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()

	ids := make([]uint64, 0, len(t.observers))
	for id := range t.observers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Observer, len(ids))
	for i, id := range ids {
		out[i] = t.observers[id]
	}
	return out
}

// Subscribe registers o and returns a function that removes it. Removing an
// observer more than once is harmless.
func (t *Tracker) Subscribe(o Observer) (unsubscribe func()) {
	t.obsMu.Lock()
	t.nextObs++
	id := t.nextObs
	t.observers[id] = o
	t.obsMu.Unlock()

	return func() {
		t.obsMu.Lock()
		delete(t.observers, id)
		t.obsMu.Unlock()
	}
}

// Get returns a snapshot of record id.
func (t *Tracker) Get(id ID) (Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return e.rec.clone(), nil
}

// List returns snapshots of the records matching f, oldest first.
func (t *Tracker) List(f Filter) []Record {
	t.mu.RLock()
	matched := make([]*entry, 0, len(t.records))
	for _, e := range t.records {
		if f.Match(e.rec) {
			matched = append(matched, e)
		}
	}
	t.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}

	out := make([]Record, len(matched))
	for i, e := range matched {
		out[i] = e.rec.clone()
	}
	return out
}

// Len returns the number of records held.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Counts returns the number of records per status.
func (t *Tracker) Counts() map[Status]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[Status]int)
	for _, e := range t.records {
		out[e.rec.Status]++
	}
	return out
}

// Restore loads records persisted by a previous process. Records that were
// still pending or running are marked Failed, since their work is lost.
// Observers are not notified. Restore returns the number of records loaded.
func (t *Tracker) Restore(ctx context.Context) (int, error) {
	if t.store == nil {
		return 0, nil
	}
	recs, err := t.store.List(ctx, Filter{})
	if err != nil {
		return 0, fmt.Errorf("failed to list persisted transfers: %w", err)
	}

	loaded := 0
	for _, rec := range recs {
		if !rec.Status.IsTerminal() {
			now := t.now()
			rec.Status = Failed
			rec.Error = "interrupted by shutdown"
			rec.UpdatedAt = now
			rec.FinishedAt = &now
			if err := t.store.Save(ctx, rec); err != nil {
				return loaded, fmt.Errorf("failed to mark transfer %s interrupted: %w", rec.ID, err)
			}
		}

		t.mu.Lock()
		if _, exists := t.records[rec.ID]; !exists {
			t.seq++
			t.records[rec.ID] = &entry{rec: rec, seq: t.seq}
			loaded++
		}
		t.mu.Unlock()
	}
	return loaded, nil
}

// Prune drops terminal records that finished more than olderThan ago, from
// memory and from the store. It returns the number of records dropped from
// memory.
func (t *Tracker) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := t.now().Add(-olderThan)

	t.mu.Lock()
	removed := 0
	for id, e := range t.records {
		if e.rec.Status.IsTerminal() && e.rec.FinishedAt != nil && e.rec.FinishedAt.Before(cutoff) {
			delete(t.records, id)
			removed++
		}
	}
	t.mu.Unlock()

	if t.store != nil {
		if _, err := t.store.DeleteFinishedBefore(ctx, cutoff); err != nil {
			return removed, fmt.Errorf("failed to prune persisted transfers: %w", err)
		}
	}
	return removed, nil
}
