// Package orchestrator turns remote I/O requests on entities into tracked
// transfers and runs them, inline or on a scheduler.
//
// Requests enter through QueueRead and QueueWrite, either called directly or
// delivered by an iomanager.Manager bound with SetAndObserveManager. Each
// accepted request becomes a transfer.Record owned by the Tracker. Dispatch
// performs the transfer and brackets it with InProgress and a terminal
// status, whichever goroutine it runs on.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/marmos91/dittoio/internal/logger"
	"github.com/marmos91/dittoio/pkg/cache"
	"github.com/marmos91/dittoio/pkg/entity"
	"github.com/marmos91/dittoio/pkg/handler"
	"github.com/marmos91/dittoio/pkg/iomanager"
	"github.com/marmos91/dittoio/pkg/scheduler"
	"github.com/marmos91/dittoio/pkg/transfer"
)

// Result is the outcome of an ingestion call.
type Result int

const (
	// Rejected means no transfer will run: the request was invalid, a
	// duplicate, or the scheduler refused it.
	Rejected Result = iota

	// Queued means the transfer ran inline or was accepted by the scheduler.
	Queued

	// Unsupported means the entity's handler cannot perform the direction.
	Unsupported
)

func (r Result) String() string {
	switch r {
	case Queued:
		return "queued"
	case Unsupported:
		return "unsupported"
	default:
		return "rejected"
	}
}

// Option configures a Logic.
type Option func(*Logic)

// WithAsync sets the initial execution mode.
func WithAsync(on bool) Option {
	return func(l *Logic) { l.async.Store(on) }
}

// WithRejectDuplicates refuses a request while another transfer for the same
// entity and direction is still in flight.
func WithRejectDuplicates(on bool) Option {
	return func(l *Logic) { l.rejectDuplicates = on }
}

// Logic is the transfer orchestrator.
type Logic struct {
	model     entity.Model
	resolver  cache.Resolver
	tracker   *transfer.Tracker
	scheduler scheduler.Scheduler

	async            atomic.Bool
	rejectDuplicates bool

	inflightMu sync.Mutex
	inflight   map[inflightKey]struct{}

	bridgeMu sync.Mutex
	manager  *iomanager.Manager
	sub      *iomanager.Subscription
}

type inflightKey struct {
	entityID  string
	direction transfer.Direction
}

// New returns an orchestrator. sched may be nil when async execution is
// never enabled; enabling it without a scheduler rejects every request.
func New(model entity.Model, resolver cache.Resolver, tracker *transfer.Tracker, sched scheduler.Scheduler, opts ...Option) *Logic {
	l := &Logic{
		model:     model,
		resolver:  resolver,
		tracker:   tracker,
		scheduler: sched,
		inflight:  make(map[inflightKey]struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// SetAsync switches between inline and scheduled execution for subsequent
// requests.
func (l *Logic) SetAsync(on bool) {
	if l.async.Swap(on) != on {
		logger.Info("Transfer execution mode changed", logger.KeyAsync, on)
	}
}

// Async reports whether transfers are handed to the scheduler.
func (l *Logic) Async() bool { return l.async.Load() }

// RejectDuplicates reports whether duplicate in-flight requests are refused.
func (l *Logic) RejectDuplicates() bool { return l.rejectDuplicates }

// Tracker returns the record tracker.
func (l *Logic) Tracker() *transfer.Tracker { return l.tracker }

// QueueRead requests a download of e's remote resource into the cache.
func (l *Logic) QueueRead(ctx context.Context, e entity.Entity) Result {
	return l.queue(ctx, e, transfer.Download)
}

// QueueWrite requests an upload of e's cached file to its remote locator.
// It returns Unsupported when e's handler cannot write.
func (l *Logic) QueueWrite(ctx context.Context, e entity.Entity) Result {
	return l.queue(ctx, e, transfer.Upload)
}

func (l *Logic) queue(ctx context.Context, e entity.Entity, dir transfer.Direction) Result {
	if e == nil {
		logger.DebugCtx(ctx, "Transfer request without entity", logger.Direction(dir.String()))
		return Rejected
	}
	id := e.ID()

	desc := e.StorageDescriptor()
	if desc == nil {
		logger.DebugCtx(ctx, "Entity has no remote storage", logger.EntityID(id))
		return Rejected
	}
	if desc.Handler == nil {
		logger.DebugCtx(ctx, "Entity has no handler", logger.EntityID(id))
		return Rejected
	}
	if desc.Locator == "" {
		logger.DebugCtx(ctx, "Entity has no locator", logger.EntityID(id))
		return Rejected
	}
	if dir == transfer.Upload && !handler.CanWrite(desc.Handler) {
		logger.DebugCtx(ctx, "Handler cannot write",
			logger.EntityID(id),
			logger.Handler(desc.Handler.Name()))
		return Unsupported
	}

	dest, err := l.resolver.Resolve(desc.Locator)
	if err != nil {
		logger.WarnCtx(ctx, "Cannot resolve cache path",
			logger.EntityID(id),
			logger.Locator(desc.Locator),
			logger.Err(err))
		return Rejected
	}

	key := inflightKey{entityID: id, direction: dir}
	if l.rejectDuplicates && !l.reserve(key) {
		logger.InfoCtx(ctx, "Transfer already in flight",
			logger.EntityID(id),
			logger.Direction(dir.String()))
		return Rejected
	}

	rec, err := l.tracker.Create(ctx, transfer.Spec{
		EntityID:        id,
		SourceLocator:   desc.Locator,
		DestinationPath: dest,
		Direction:       dir,
		Handler:         desc.Handler,
	})
	if err != nil {
		l.release(key)
		logger.ErrorCtx(ctx, "Failed to create transfer record", logger.EntityID(id), logger.Err(err))
		return Rejected
	}

	if !l.async.Load() {
		// The outcome is visible on the record.
		_ = l.Dispatch(ctx, &rec)
		return Queued
	}
	return l.schedule(ctx, rec, key)
}

func (l *Logic) schedule(ctx context.Context, rec transfer.Record, key inflightKey) Result {
	prio := scheduler.PriorityNormal
	if rec.Direction == transfer.Download {
		prio = scheduler.PriorityHigh
	}
	task := scheduler.Task{
		Name:     rec.Direction.String() + " " + rec.ID.String(),
		Priority: prio,
		Run: func(taskCtx context.Context) {
			_ = l.Dispatch(taskCtx, &rec)
		},
	}

	if l.scheduler == nil || !l.scheduler.Schedule(task) {
		l.release(key)
		logger.WarnCtx(ctx, "Scheduler refused transfer",
			logger.TransferID(rec.ID.String()),
			logger.EntityID(rec.EntityID))
		return Rejected
	}

	// A fast worker may already have moved the record past Scheduled.
	if _, err := l.tracker.SetStatus(ctx, rec.ID, transfer.Scheduled, nil); err != nil {
		logger.DebugCtx(ctx, "Transfer started before it was marked scheduled",
			logger.TransferID(rec.ID.String()),
			logger.Err(err))
	}
	return Queued
}

func (l *Logic) reserve(k inflightKey) bool {
	l.inflightMu.Lock()
	defer l.inflightMu.Unlock()
	if _, busy := l.inflight[k]; busy {
		return false
	}
	l.inflight[k] = struct{}{}
	return true
}

func (l *Logic) release(k inflightKey) {
	if !l.rejectDuplicates {
		return
	}
	l.inflightMu.Lock()
	delete(l.inflight, k)
	l.inflightMu.Unlock()
}

// String describes the orchestrator's state for debugging.
func (l *Logic) String() string {
	l.bridgeMu.Lock()
	bound := l.manager != nil
	l.bridgeMu.Unlock()

	counts := l.tracker.Counts()
	var b strings.Builder
	fmt.Fprintf(&b, "orchestrator: async=%t reject_duplicates=%t manager_bound=%t records=%d",
		l.Async(), l.rejectDuplicates, bound, l.tracker.Len())
	for _, s := range []transfer.Status{transfer.Unspecified, transfer.Scheduled, transfer.InProgress, transfer.Completed, transfer.Failed} {
		fmt.Fprintf(&b, " %s=%d", s, counts[s])
	}
	return b.String()
}
