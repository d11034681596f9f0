package rest

import (
	"net/http"

	"flowcanvas/application/editor"
	"flowcanvas/application/session"
	"flowcanvas/infrastructure/config"
	"flowcanvas/interfaces/http/rest/middleware"
	v1 "flowcanvas/interfaces/http/rest/v1"
	"flowcanvas/pkg/common"
	pkgerrors "flowcanvas/pkg/errors"
	"flowcanvas/pkg/observability"
	"flowcanvas/pkg/ratelimit"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router assembles the bridge's HTTP surface: probes and metrics at
// the root, the canvas, execution and session API under /api/v1, and
// the shared middleware stack.
type Router struct {
	cfg      *config.Config
	editor   *editor.EditorService
	sessions *session.Manager
	metrics  *observability.Collector
	limiter  *ratelimit.IPLimiter
	logger   *zap.Logger
}

// NewRouter creates a new router instance. The limiter may be nil when
// throttling is disabled.
func NewRouter(
	cfg *config.Config,
	editorSvc *editor.EditorService,
	sessions *session.Manager,
	metrics *observability.Collector,
	limiter *ratelimit.IPLimiter,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:      cfg,
		editor:   editorSvc,
		sessions: sessions,
		metrics:  metrics,
		limiter:  limiter,
		logger:   logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.RequestContext)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}
	router.Use(versionMiddleware)

	// CORS configuration; the canvas UI is a browser client on another
	// local port.
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	errorHandler := pkgerrors.NewErrorHandler(rt.logger, rt.cfg.IsDevelopment())

	router.Route(v1.Prefix, func(api chi.Router) {
		if rt.limiter != nil {
			api.Use(middleware.RateLimit(rt.limiter, rt.metrics, rt.logger))
		}
		api.Use(errorHandler.Middleware)

		v1.Routes(api, rt.editor, rt.sessions, errorHandler, rt.logger)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		common.RespondError(w, http.StatusNotFound, common.StandardErrorCodes.NotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		common.RespondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed for this route")
	})

	return router
}

// healthCheck handles liveness probes
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports whether the document is servable. The editor
// answers from memory, so a failure here means the service is closing.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := rt.editor.Document(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"closing"}`))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// versionMiddleware adds the API version header to all responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", v1.Version)
		next.ServeHTTP(w, r)
	})
}
