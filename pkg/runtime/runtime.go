// Package runtime assembles a dittoio process from its configuration and
// runs it until shutdown.
//
// New builds every component: record store, tracker, handlers, cache
// directory, worker pool, request manager, orchestrator, and the metrics and
// API servers when enabled. Serve starts the background parts and blocks.
// One-shot commands use the components directly and call Close instead.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/dittoio/internal/logger"
	"github.com/marmos91/dittoio/internal/watch"
	"github.com/marmos91/dittoio/pkg/api"
	"github.com/marmos91/dittoio/pkg/api/handlers"
	"github.com/marmos91/dittoio/pkg/cache"
	"github.com/marmos91/dittoio/pkg/config"
	"github.com/marmos91/dittoio/pkg/entity/memory"
	"github.com/marmos91/dittoio/pkg/handler"
	"github.com/marmos91/dittoio/pkg/handler/fs"
	httph "github.com/marmos91/dittoio/pkg/handler/http"
	"github.com/marmos91/dittoio/pkg/handler/s3"
	"github.com/marmos91/dittoio/pkg/iomanager"
	"github.com/marmos91/dittoio/pkg/metrics"
	"github.com/marmos91/dittoio/pkg/orchestrator"
	"github.com/marmos91/dittoio/pkg/scheduler"
	"github.com/marmos91/dittoio/pkg/transfer"
	"github.com/marmos91/dittoio/pkg/transfer/store/badger"
	memstore "github.com/marmos91/dittoio/pkg/transfer/store/memory"
	"github.com/marmos91/dittoio/pkg/transfer/store/sqldb"
)

// Runtime owns the components of a running dittoio process.
type Runtime struct {
	mu  sync.Mutex
	cfg config.Config

	configPath string

	records  transfer.RecordStore
	tracker  *transfer.Tracker
	scene    *memory.Scene
	handlers *handler.Registry
	cacheDir *cache.Dir
	pool     *scheduler.Pool
	manager  *iomanager.Manager
	logic    *orchestrator.Logic

	registry      *prometheus.Registry
	metricsServer *metrics.Server
	apiServer     *api.Server
	watcher       *watch.File

	serveOnce sync.Once
	closeOnce sync.Once
	closeErr  error
}

// Option customizes New.
type Option func(*Runtime)

// WithConfigPath enables hot reload: when the file changes, the settings
// that can change at runtime are applied (see ApplyConfig).
func WithConfigPath(path string) Option {
	return func(r *Runtime) { r.configPath = path }
}

// New builds a runtime from cfg. Persisted records are restored before New
// returns. The caller must eventually call Serve or Close.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	r := &Runtime{cfg: *cfg}
	for _, o := range opts {
		o(r)
	}

	if err := r.build(ctx); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Runtime) build(ctx context.Context) error {
	cfg := &r.cfg

	records, err := openRecordStore(ctx, cfg.Records)
	if err != nil {
		return err
	}
	r.records = records
	r.tracker = transfer.NewTracker(transfer.WithStore(records))

	restored, err := r.tracker.Restore(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore transfer records: %w", err)
	}
	logger.Info("Transfer records loaded", logger.Backend(string(cfg.Records.Backend)), "count", restored)

	r.handlers, err = newHandlerRegistry(ctx, cfg.Handlers)
	if err != nil {
		return err
	}
	logger.Info("Handlers registered", "schemes", r.handlers.Schemes())

	layout, err := cache.ParseLayout(cfg.Cache.Layout)
	if err != nil {
		return err
	}
	r.cacheDir, err = cache.NewDir(cfg.Cache.Root, layout)
	if err != nil {
		return fmt.Errorf("failed to prepare cache directory: %w", err)
	}

	r.pool = scheduler.NewPool(scheduler.Config{
		Workers:     cfg.IO.Workers,
		QueueSize:   cfg.IO.QueueSize,
		TaskTimeout: cfg.IO.TaskTimeout,
	})
	r.scene = memory.NewScene()
	r.manager = iomanager.New()
	r.logic = orchestrator.New(r.scene, r.cacheDir, r.tracker, r.pool,
		orchestrator.WithAsync(cfg.IO.Async),
		orchestrator.WithRejectDuplicates(cfg.IO.RejectDuplicates),
	)
	r.logic.SetAndObserveManager(r.manager)

	if cfg.Metrics.Enabled {
		r.registry = metrics.NewRegistry()
		r.tracker.Subscribe(metrics.NewMetrics(r.registry))
		r.registry.MustRegister(metrics.NewPoolCollector(r.pool))
		r.metricsServer = metrics.NewServer(cfg.Metrics.Port, r.registry)
	}

	if cfg.API.IsEnabled() {
		r.apiServer = api.NewServer(cfg.API, api.Deps{
			Tracker:   r.tracker,
			Entities:  r.scene,
			Handlers:  r.handlers,
			Publisher: r.manager,
			Toggle:    r.logic,
			Checks:    r.checks(),
		})
	}

	if r.configPath != "" {
		r.watcher, err = watch.NewFile(r.configPath, watch.DefaultDebounce, r.reload)
		if err != nil {
			return err
		}
	}

	return nil
}

func openRecordStore(ctx context.Context, cfg config.RecordsConfig) (transfer.RecordStore, error) {
	switch cfg.Backend {
	case config.RecordsBadger:
		s, err := badger.Open(cfg.Badger)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger record store: %w", err)
		}
		return s, nil
	case config.RecordsSQL:
		s, err := sqldb.Open(ctx, cfg.SQL)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s record store: %w", cfg.SQL.Type, err)
		}
		return s, nil
	case config.RecordsMemory, "":
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown records backend: %s", cfg.Backend)
	}
}

// newHandlerRegistry registers the enabled handlers under their schemes.
func newHandlerRegistry(ctx context.Context, cfg config.HandlersConfig) (*handler.Registry, error) {
	reg := handler.NewRegistry()

	if cfg.FS.IsEnabled() {
		reg.Register(fs.NewOS(), handler.FileScheme)
	}
	if cfg.HTTP.IsEnabled() {
		reg.Register(httph.New(cfg.HTTP.Config), "http", "https")
	}
	if cfg.S3.Enabled {
		h, err := s3.NewFromConfig(ctx, cfg.S3.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 handler: %w", err)
		}
		reg.Register(h, s3.Scheme)
	}

	if len(reg.Schemes()) == 0 {
		return nil, errors.New("no handler enabled")
	}
	return reg, nil
}

// checks are the readiness probes served by /health/ready.
func (r *Runtime) checks() map[string]handlers.CheckFunc {
	return map[string]handlers.CheckFunc{
		"records": func(ctx context.Context) error {
			_, err := r.records.List(ctx, transfer.Filter{Limit: 1})
			return err
		},
		"io": func(ctx context.Context) error {
			if r.manager.Subscribers() == 0 {
				return errors.New("no request listener")
			}
			return nil
		},
	}
}

// Tracker returns the transfer record tracker.
func (r *Runtime) Tracker() *transfer.Tracker { return r.tracker }

// Scene returns the entity model.
func (r *Runtime) Scene() *memory.Scene { return r.scene }

// Handlers returns the handler registry.
func (r *Runtime) Handlers() *handler.Registry { return r.handlers }

// Logic returns the orchestrator.
func (r *Runtime) Logic() *orchestrator.Logic { return r.logic }

// Manager returns the request manager the orchestrator observes.
func (r *Runtime) Manager() *iomanager.Manager { return r.manager }

// CacheDir returns the local cache directory.
func (r *Runtime) CacheDir() *cache.Dir { return r.cacheDir }

// APIServer returns the API server, or nil when the API is disabled.
func (r *Runtime) APIServer() *api.Server { return r.apiServer }
