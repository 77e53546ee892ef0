package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/dittoio/internal/logger"
	"github.com/marmos91/dittoio/pkg/scheduler"
)

// cancelGrace bounds the wait for cancelled transfers after the drain
// timeout, before the record store is closed.
const cancelGrace = 5 * time.Second

// Serve starts the worker pool, the metrics and API servers, the retention
// loop and the config watcher, then blocks until ctx is cancelled or a
// server fails. Everything is shut down before Serve returns. Serve runs
// at most once.
func (r *Runtime) Serve(ctx context.Context) error {
	err := errors.New("runtime already served")
	r.serveOnce.Do(func() {
		err = r.serve(ctx)
	})
	return err
}

func (r *Runtime) serve(ctx context.Context) error {
	logger.Info("Starting dittoio runtime",
		"cache", r.cacheDir.Root(),
		"async", r.logic.Async(),
		"workers", r.pool.Workers())

	r.pool.Start()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	if r.metricsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.metricsServer.Start(ctx); err != nil {
				errChan <- err
			}
		}()
	}

	if r.apiServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.apiServer.Start(ctx); err != nil {
				errChan <- err
			}
		}()
	}

	if r.cfg.Records.Retention > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.pruneLoop(ctx, r.cfg.Records.Retention, r.cfg.Records.PruneInterval)
		}()
	}

	if r.watcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.watcher.Run(ctx)
		}()
		logger.Info("Watching configuration for changes", logger.Path(r.watcher.Path()))
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received", "reason", ctx.Err())
	case err := <-errChan:
		logger.Error("Server failed - initiating shutdown", logger.Err(err))
		serveErr = err
	}

	cancel()
	wg.Wait()

	if err := r.Close(); err != nil && serveErr == nil {
		serveErr = err
	}
	logger.Info("dittoio runtime stopped")
	return serveErr
}

// Close releases every component. Pending asynchronous transfers get up to
// the shutdown timeout to finish. Close is idempotent and is called by Serve.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.shutdown()
	})
	return r.closeErr
}

func (r *Runtime) shutdown() error {
	var errs []error

	if r.watcher != nil {
		_ = r.watcher.Close()
	}

	// No new requests past this point; API calls answer 503.
	if r.manager != nil {
		_ = r.manager.Close()
	}
	if r.logic != nil {
		_ = r.logic.Close()
	}

	if r.pool != nil {
		timeout := r.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		logger.Info("Draining transfer queue", "timeout", timeout.String())
		if err := r.pool.Stop(timeout); err != nil {
			logger.Warn("Transfer queue did not drain", logger.Err(err))
			errs = append(errs, err)
			// Cancelled tasks still record their terminal status.
			if errors.Is(err, scheduler.ErrStopTimeout) && !r.pool.Wait(cancelGrace) {
				logger.Warn("Transfers still running after cancellation, final status may not be persisted",
					"grace", cancelGrace.String())
			}
		}
	}

	if r.records != nil {
		if err := r.records.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close record store: %w", err))
		}
	}

	return errors.Join(errs...)
}
