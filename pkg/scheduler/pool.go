package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/dittoio/internal/logger"
)

// Config sizes a Pool.
type Config struct {
	// Workers is the number of goroutines running tasks.
	Workers int `mapstructure:"workers" yaml:"workers"`

	// QueueSize bounds each priority queue.
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`

	// TaskTimeout bounds a single task. Zero means no timeout.
	TaskTimeout time.Duration `mapstructure:"task_timeout" yaml:"task_timeout"`
}

// DefaultConfig returns the pool defaults.
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		QueueSize:   1000,
		TaskTimeout: 30 * time.Minute,
	}
}

// Stats is a point-in-time view of a pool.
type Stats struct {
	PendingHigh   int
	PendingNormal int
	Running       int
	Completed     int
	Panicked      int
	Rejected      int
}

// Pending returns the number of accepted tasks not yet started.
func (s Stats) Pending() int { return s.PendingHigh + s.PendingNormal }

// Pool is a Scheduler backed by a fixed set of workers and two bounded
// priority queues.
//
// Workers check the high priority queue first, then block on both queues,
// so high priority work is never starved by a full normal queue. Stop
// drains every accepted task before the workers exit.
type Pool struct {
	high   chan Task
	normal chan Task

	workers     int
	taskTimeout time.Duration

	// submitMu guards stopped. Submissions hold it shared so Stop can wait
	// for in-flight sends before closing stopCh.
	submitMu sync.RWMutex
	stopped  bool

	wg        sync.WaitGroup
	stopCh    chan struct{}
	stoppedCh chan struct{}
	baseCtx   context.Context
	cancel    context.CancelFunc

	mu            sync.Mutex
	started       bool
	pendingHigh   int
	pendingNormal int
	running       int
	completed     int
	panicked      int
	rejected      int
}

var _ Scheduler = (*Pool)(nil)

// NewPool creates a pool. Call Start to begin running tasks; tasks accepted
// before Start wait in the queues.
func NewPool(cfg Config) *Pool {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.TaskTimeout < 0 {
		cfg.TaskTimeout = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		high:        make(chan Task, cfg.QueueSize),
		normal:      make(chan Task, cfg.QueueSize),
		workers:     cfg.Workers,
		taskTimeout: cfg.TaskTimeout,
		stopCh:      make(chan struct{}),
		stoppedCh:   make(chan struct{}),
		baseCtx:     ctx,
		cancel:      cancel,
	}
}

// Start launches the workers. Subsequent calls are no-ops.
func (p *Pool) Start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	logger.Info("Starting task pool", logger.KeyWorkers, p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go func() {
		p.wg.Wait()
		close(p.stoppedCh)
	}()
}

// Schedule implements Scheduler. It never blocks.
func (p *Pool) Schedule(t Task) bool {
	if err := p.Submit(t); err != nil {
		logger.Warn("Task rejected",
			logger.KeyTask, t.Name,
			logger.KeyPriority, t.Priority.String(),
			logger.Err(err))
		return false
	}
	return true
}

// Submit enqueues t without blocking.
func (p *Pool) Submit(t Task) error {
	if t.Run == nil {
		return fmt.Errorf("task %q has no Run function", t.Name)
	}

	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if p.stopped {
		p.countRejected()
		return ErrStopped
	}

	q, counter := p.normal, &p.pendingNormal
	if t.Priority == PriorityHigh {
		q, counter = p.high, &p.pendingHigh
	}

	// Count before sending so a fast worker never decrements first.
	p.mu.Lock()
	*counter++
	p.mu.Unlock()

	select {
	case q <- t:
		return nil
	default:
		p.mu.Lock()
		*counter--
		p.rejected++
		p.mu.Unlock()
		return ErrQueueFull
	}
}

func (p *Pool) countRejected() {
	p.mu.Lock()
	p.rejected++
	p.mu.Unlock()
}

// Stop refuses new tasks and waits up to timeout for accepted ones to
// finish. On timeout the context of every remaining task is cancelled and
// ErrStopTimeout is returned; the tasks still run, with a done context.
// Stopping a pool that was never started runs the queued tasks on the
// caller.
func (p *Pool) Stop(timeout time.Duration) error {
	p.submitMu.Lock()
	if p.stopped {
		p.submitMu.Unlock()
		return nil
	}
	p.stopped = true
	p.submitMu.Unlock()

	p.mu.Lock()
	started := p.started
	p.mu.Unlock()

	logger.Info("Stopping task pool", logger.KeyPending, p.Stats().Pending())

	close(p.stopCh)
	if !started {
		p.drain()
		p.cancel()
		return nil
	}

	select {
	case <-p.stoppedCh:
		p.cancel()
		logger.Info("Task pool stopped")
		return nil
	case <-time.After(timeout):
		p.cancel()
		logger.Warn("Task pool stop timed out, cancelling remaining tasks", logger.KeyPending, p.Stats().Pending())
		return ErrStopTimeout
	}
}

// Wait blocks until every worker has exited or timeout elapses and reports
// whether the workers exited. After Stop returns ErrStopTimeout, the
// cancelled tasks may still be writing their final state; callers Wait
// before releasing resources those tasks use.
func (p *Pool) Wait(timeout time.Duration) bool {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return true
	}

	select {
	case <-p.stoppedCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		PendingHigh:   p.pendingHigh,
		PendingNormal: p.pendingNormal,
		Running:       p.running,
		Completed:     p.completed,
		Panicked:      p.panicked,
		Rejected:      p.rejected,
	}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int { return p.workers }

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	logger.Debug("Task worker started", "worker_id", id)

	for {
		// Phase 1: high priority, non-blocking.
		select {
		case t := <-p.high:
			p.run(t)
			continue
		default:
		}

		// Phase 2: wait for any work.
		select {
		case t := <-p.high:
			p.run(t)
		case t := <-p.normal:
			p.run(t)
		case <-p.stopCh:
			p.drain()
			logger.Debug("Task worker stopped", "worker_id", id)
			return
		}
	}
}

// drain runs whatever is left in the queues, high priority first.
func (p *Pool) drain() {
	for {
		select {
		case t := <-p.high:
			p.run(t)
			continue
		default:
		}
		select {
		case t := <-p.high:
			p.run(t)
		case t := <-p.normal:
			p.run(t)
		default:
			return
		}
	}
}

func (p *Pool) run(t Task) {
	p.mu.Lock()
	if t.Priority == PriorityHigh {
		p.pendingHigh--
	} else {
		p.pendingNormal--
	}
	p.running++
	p.mu.Unlock()

	ctx := p.baseCtx
	var cancel context.CancelFunc
	if p.taskTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.taskTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	panicked := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				logger.Error("Task panicked", logger.KeyTask, t.Name, "panic", r)
			}
		}()
		t.Run(ctx)
	}()

	p.mu.Lock()
	p.running--
	if panicked {
		p.panicked++
	} else {
		p.completed++
	}
	p.mu.Unlock()
}
