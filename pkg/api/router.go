package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/dittoio/internal/logger"
	"github.com/marmos91/dittoio/pkg/api/handlers"
	apimw "github.com/marmos91/dittoio/pkg/api/middleware"
	"github.com/marmos91/dittoio/pkg/transfer"
)

// Deps are the components the API serves. Checks may be nil.
type Deps struct {
	Tracker   *transfer.Tracker
	Entities  handlers.EntityStore
	Handlers  handlers.HandlerLookup
	Publisher handlers.RequestPublisher
	Toggle    handlers.AsyncToggle
	Checks    map[string]handlers.CheckFunc

	// RequestTimeout bounds request handling. Synchronous transfers run
	// inside the request. Default: 10m.
	RequestTimeout time.Duration
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// Routes:
//   - GET /health, GET /health/ready
//   - GET /api/v1/transfers, /api/v1/transfers/summary, /api/v1/transfers/{id}
//   - GET, POST /api/v1/entities; GET, DELETE /api/v1/entities/{id}
//   - POST /api/v1/entities/{id}/read, /api/v1/entities/{id}/write
//   - GET, PUT /api/v1/settings/async
func NewRouter(deps Deps) http.Handler {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apimw.Tracing)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	healthHandler := handlers.NewHealthHandler(deps.Checks)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		transfers := handlers.NewTransferHandler(deps.Tracker)
		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", transfers.List)
			r.Get("/summary", transfers.Counts)
			r.Get("/{id}", transfers.Get)
		})

		entities := handlers.NewEntityHandler(deps.Entities, deps.Handlers, deps.Publisher)
		r.Route("/entities", func(r chi.Router) {
			r.Get("/", entities.List)
			r.Post("/", entities.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", entities.Get)
				r.Delete("/", entities.Delete)
				r.Post("/read", entities.RequestRead)
				r.Post("/write", entities.RequestWrite)
			})
		})

		settings := handlers.NewSettingsHandler(deps.Toggle)
		r.Route("/settings", func(r chi.Router) {
			r.Get("/async", settings.GetAsync)
			r.Put("/async", settings.PutAsync)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs requests using the internal logger: start at DEBUG,
// completion at INFO.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.DebugCtx(r.Context(), "API request started",
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyURL, r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.InfoCtx(r.Context(), "API request completed",
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyURL, r.URL.Path,
			logger.KeyCode, ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.DurationMs(time.Since(start)),
		)
	})
}
