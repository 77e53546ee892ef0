package orchestrator

import (
	"context"

	"github.com/marmos91/dittoio/internal/logger"
	"github.com/marmos91/dittoio/pkg/iomanager"
)

// SetAndObserveManager binds the orchestrator to m's read and write request
// events. A previous binding is fully released first, so no event from the
// old manager is delivered once this returns. A nil m leaves the
// orchestrator unbound.
//
// It must not be called from inside an event delivery.
func (l *Logic) SetAndObserveManager(m *iomanager.Manager) {
	l.bridgeMu.Lock()
	defer l.bridgeMu.Unlock()

	if l.manager == m && (m == nil || l.sub != nil) {
		return
	}

	if l.sub != nil {
		l.sub.Unsubscribe()
		l.sub = nil
		l.manager = nil
		logger.Debug("Released io manager")
	}

	if m == nil {
		return
	}
	l.sub = m.Subscribe(l.onEvent, iomanager.RemoteReadRequested, iomanager.RemoteWriteRequested)
	l.manager = m
	logger.Debug("Observing io manager")
}

// Manager returns the bound manager, or nil.
func (l *Logic) Manager() *iomanager.Manager {
	l.bridgeMu.Lock()
	defer l.bridgeMu.Unlock()
	return l.manager
}

// Close releases the manager binding.
func (l *Logic) Close() error {
	l.SetAndObserveManager(nil)
	return nil
}

func (l *Logic) onEvent(ctx context.Context, ev iomanager.Event) {
	if ev.Entity == nil {
		logger.DebugCtx(ctx, "Ignoring request without entity", "event", ev.Kind.String())
		return
	}

	var res Result
	switch ev.Kind {
	case iomanager.RemoteReadRequested:
		res = l.QueueRead(ctx, ev.Entity)
	case iomanager.RemoteWriteRequested:
		res = l.QueueWrite(ctx, ev.Entity)
	default:
		return
	}

	logger.DebugCtx(ctx, "Handled request event",
		"event", ev.Kind.String(),
		logger.EntityID(ev.Entity.ID()),
		logger.KeyResult, res.String())
}
