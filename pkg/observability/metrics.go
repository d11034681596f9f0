package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics for the bridge. Each collector
// owns its registry so tests can create independent instances without
// duplicate-registration panics.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Document metrics
	CanvasEvents  *prometheus.CounterVec
	DocumentNodes prometheus.Gauge
	DocumentEdges prometheus.Gauge

	// Persistence metrics
	Saves    *prometheus.CounterVec
	DraftOps *prometheus.CounterVec

	// Undo metrics
	UndoOps *prometheus.CounterVec

	// Execution metrics
	Executions      *prometheus.CounterVec
	SessionsCreated prometheus.Counter

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Rate limiting
	RateLimited prometheus.Counter

	// Config reloads
	ConfigReloads prometheus.Counter
}

// NewCollector creates a metrics collector with the given namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	canvasEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "canvas_events_total",
			Help:      "Total number of canvas mutations by event type",
		},
		[]string{"event"},
	)

	documentNodes := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "document_nodes",
			Help:      "Number of nodes in the working document",
		},
	)

	documentEdges := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "document_edges",
			Help:      "Number of edges in the working document",
		},
	)

	saves := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Total number of backend saves by outcome",
		},
		[]string{"outcome"},
	)

	draftOps := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_operations_total",
			Help:      "Total number of draft store operations",
		},
		[]string{"operation"},
	)

	undoOps := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undo_operations_total",
			Help:      "Total number of undo lifecycle transitions",
		},
		[]string{"operation"},
	)

	executions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Total number of workflow executions by status",
		},
		[]string{"status"},
	)

	sessionsCreated := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of chat sessions started",
		},
	)

	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_cache_hits_total",
			Help:      "Total number of validation cache hits",
		},
	)

	cacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_cache_misses_total",
			Help:      "Total number of validation cache misses",
		},
	)

	rateLimited := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
	)

	configReloads := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Total number of live configuration reloads",
		},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		canvasEvents,
		documentNodes,
		documentEdges,
		saves,
		draftOps,
		undoOps,
		executions,
		sessionsCreated,
		cacheHits,
		cacheMisses,
		rateLimited,
		configReloads,
	)

	return &Collector{
		registry:        registry,
		HTTPRequests:    httpRequests,
		HTTPDuration:    httpDuration,
		CanvasEvents:    canvasEvents,
		DocumentNodes:   documentNodes,
		DocumentEdges:   documentEdges,
		Saves:           saves,
		DraftOps:        draftOps,
		UndoOps:         undoOps,
		Executions:      executions,
		SessionsCreated: sessionsCreated,
		CacheHits:       cacheHits,
		CacheMisses:     cacheMisses,
		RateLimited:     rateLimited,
		ConfigReloads:   configReloads,
	}
}

// ObserveHTTPRequest records one completed request.
func (c *Collector) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// EventObserved counts one canvas mutation by event type.
func (c *Collector) EventObserved(eventType string) {
	c.CanvasEvents.WithLabelValues(eventType).Inc()
}

// AdjustDocumentSize moves the document gauges by the given deltas.
func (c *Collector) AdjustDocumentSize(nodeDelta, edgeDelta int) {
	if nodeDelta != 0 {
		c.DocumentNodes.Add(float64(nodeDelta))
	}
	if edgeDelta != 0 {
		c.DocumentEdges.Add(float64(edgeDelta))
	}
}

// SetDocumentSize sets the document gauges to absolute values.
func (c *Collector) SetDocumentSize(nodes, edges int) {
	c.DocumentNodes.Set(float64(nodes))
	c.DocumentEdges.Set(float64(edges))
}

// SaveObserved counts one save attempt. Outcome is "success" or
// "failure".
func (c *Collector) SaveObserved(outcome string) {
	c.Saves.WithLabelValues(outcome).Inc()
}

// DraftObserved counts one draft store operation.
func (c *Collector) DraftObserved(operation string) {
	c.DraftOps.WithLabelValues(operation).Inc()
}

// UndoObserved counts one undo lifecycle transition (armed, restored,
// expired).
func (c *Collector) UndoObserved(operation string) {
	c.UndoOps.WithLabelValues(operation).Inc()
}

// ExecutionObserved counts one workflow execution by reported status.
func (c *Collector) ExecutionObserved(status string) {
	c.Executions.WithLabelValues(status).Inc()
}

// SessionCreated counts one new chat session.
func (c *Collector) SessionCreated() { c.SessionsCreated.Inc() }

// CacheHit counts a validation cache hit.
func (c *Collector) CacheHit() { c.CacheHits.Inc() }

// CacheMiss counts a validation cache miss.
func (c *Collector) CacheMiss() { c.CacheMisses.Inc() }

// RateLimitRejected counts a request turned away by the rate limiter.
func (c *Collector) RateLimitRejected() { c.RateLimited.Inc() }

// ConfigReloaded counts a successful live configuration reload.
func (c *Collector) ConfigReloaded() { c.ConfigReloads.Inc() }

// RegisterBreakerState exposes the upstream circuit breaker state as a
// gauge (0 closed, 1 half-open, 2 open). Registered separately because
// the upstream client is constructed after the collector.
func (c *Collector) RegisterBreakerState(namespace string, state func() float64) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_breaker_state",
			Help:      "Upstream circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		state,
	))
}

// Registry returns the Prometheus registry for this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the scrape handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
