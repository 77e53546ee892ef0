// Package iomanager is the event source that owns remote I/O requests.
//
// Callers announce that an entity needs its remote resource read or written;
// the Manager delivers the request synchronously to every subscriber
// registered for that kind. Delivery runs on the publishing goroutine.
package iomanager

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/marmos91/dittoio/internal/logger"
	"github.com/marmos91/dittoio/pkg/entity"
)

// ErrClosed is returned when publishing on a closed manager.
var ErrClosed = errors.New("io manager closed")

// Kind identifies an event.
type Kind int

const (
	// RemoteReadRequested asks for an entity's remote resource to be fetched.
	RemoteReadRequested Kind = iota + 1

	// RemoteWriteRequested asks for an entity's local data to be pushed.
	RemoteWriteRequested
)

func (k Kind) String() string {
	switch k {
	case RemoteReadRequested:
		return "remote_read_requested"
	case RemoteWriteRequested:
		return "remote_write_requested"
	default:
		return "unknown"
	}
}

// Event is a request notification. Entity may be nil.
type Event struct {
	Kind   Kind
	Entity entity.Entity
}

// Listener receives events. It runs on the publisher's goroutine and must
// not unsubscribe its own subscription.
type Listener func(ctx context.Context, ev Event)

// Manager fans request events out to subscribers.
type Manager struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
}

// New returns a manager with no subscribers.
func New() *Manager {
	return &Manager{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers fn for the given kinds. Releasing the returned
// subscription is the caller's responsibility.
func (m *Manager) Subscribe(fn Listener, kinds ...Kind) *Subscription {
	s := &Subscription{
		manager: m,
		fn:      fn,
		kinds:   make(map[Kind]bool, len(kinds)),
		active:  true,
	}
	for _, k := range kinds {
		s.kinds[k] = true
	}

	m.mu.Lock()
	m.nextID++
	s.id = m.nextID
	m.subs[s.id] = s
	m.mu.Unlock()

	logger.Debug("Subscribed to io manager", "subscription", s.id, "kinds", len(kinds))
	return s
}

// RequestRead publishes RemoteReadRequested for e.
func (m *Manager) RequestRead(ctx context.Context, e entity.Entity) (int, error) {
	return m.Publish(ctx, Event{Kind: RemoteReadRequested, Entity: e})
}

// RequestWrite publishes RemoteWriteRequested for e.
func (m *Manager) RequestWrite(ctx context.Context, e entity.Entity) (int, error) {
	return m.Publish(ctx, Event{Kind: RemoteWriteRequested, Entity: e})
}

// Publish delivers ev to every matching subscriber in subscription order
// and returns how many received it.
func (m *Manager) Publish(ctx context.Context, ev Event) (int, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return 0, ErrClosed
	}
	targets := make([]*Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		if s.kinds[ev.Kind] {
			targets = append(targets, s)
		}
	}
	m.mu.RUnlock()

	sort.Slice(targets, func(i, j int) bool { return targets[i].id < targets[j].id })

	delivered := 0
	for _, s := range targets {
		if s.deliver(ctx, ev) {
			delivered++
		}
	}
	return delivered, nil
}

// Subscribers returns the number of live subscriptions.
func (m *Manager) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// Close rejects further publications and releases every subscription.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	subs := make([]*Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	return nil
}

func (m *Manager) remove(id uint64) {
	m.mu.Lock()
	delete(m.subs, id)
	m.mu.Unlock()
}

// Subscription is a handle on a registered listener.
type Subscription struct {
	manager *Manager
	id      uint64
	kinds   map[Kind]bool
	fn      Listener

	// deliverMu is held for the duration of a delivery so Unsubscribe can
	// wait for it.
	deliverMu sync.Mutex
	active    bool
}

func (s *Subscription) deliver(ctx context.Context, ev Event) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if !s.active {
		return false
	}
	s.fn(ctx, ev)
	return true
}

// Unsubscribe removes the listener. It blocks until any delivery in progress
// on this subscription has returned; no delivery starts after it returns.
// Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.manager.remove(s.id)

	s.deliverMu.Lock()
	wasActive := s.active
	s.active = false
	s.deliverMu.Unlock()

	if wasActive {
		logger.Debug("Unsubscribed from io manager", "subscription", s.id)
	}
}

// Manager returns the manager this subscription belongs to.
func (s *Subscription) Manager() *Manager { return s.manager }
