package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"flowcanvas/application/editor"
	"flowcanvas/application/ports"
	"flowcanvas/application/session"
	domainconfig "flowcanvas/domain/config"
	"flowcanvas/domain/core/aggregates"
	"flowcanvas/infrastructure/backendapi"
	"flowcanvas/infrastructure/config"
	"flowcanvas/infrastructure/draft"
	"flowcanvas/infrastructure/events"
	"flowcanvas/infrastructure/layout"
	"flowcanvas/pkg/extensions"
	"flowcanvas/pkg/observability"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "flowcanvas"

// SuperSet is the main provider set containing all providers.
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideHookManager,
	ProvideBackendClient,
	ProvideGraphBackend,
	ProvideDraftStore,
	ProvideCache,
	ProvideEventPublisher,
	ProvideDomainConfig,
	ProvideCanvas,
	ProvideLayoutFunc,
	ProvideEditorOptions,
	ProvideEditorService,
	ProvideSessionManager,
	wire.Struct(new(Container), "*"),
)

// ProvideLogger creates the logger for the configured environment and
// level.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// ProvideMetrics creates the Prometheus collector.
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

// ProvideHookManager creates the hook manager with the observability
// hooks already registered. Lifecycle hooks are how saves, undo
// transitions, drafts and executions reach the metrics without the
// application layer knowing about Prometheus.
func ProvideHookManager(metrics *observability.Collector) *extensions.HookManager {
	hooks := extensions.NewHookManager()
	registerObservabilityHooks(hooks, metrics)
	return hooks
}

func registerObservabilityHooks(hooks *extensions.HookManager, metrics *observability.Collector) {
	count := func(fn func()) extensions.Hook {
		return func(context.Context, extensions.HookData) error {
			fn()
			return nil
		}
	}

	hooks.Register(extensions.HookDocumentSaved, count(func() { metrics.SaveObserved("success") }))
	hooks.Register(extensions.HookSaveFailed, count(func() { metrics.SaveObserved("failure") }))

	hooks.Register(extensions.HookUndoArmed, count(func() { metrics.UndoObserved("armed") }))
	hooks.Register(extensions.HookUndoRestored, count(func() { metrics.UndoObserved("restored") }))
	hooks.Register(extensions.HookUndoExpired, count(func() { metrics.UndoObserved("expired") }))

	hooks.Register(extensions.HookDraftWritten, count(func() { metrics.DraftObserved("written") }))
	hooks.Register(extensions.HookDraftRestored, count(func() { metrics.DraftObserved("restored") }))
	hooks.Register(extensions.HookDraftDiscarded, count(func() { metrics.DraftObserved("discarded") }))

	hooks.Register(extensions.HookSessionCreated, count(metrics.SessionCreated))
	hooks.Register(extensions.HookExecutionCompleted, count(func() { metrics.ExecutionObserved("completed") }))
	hooks.Register(extensions.HookExecutionFailed, count(func() { metrics.ExecutionObserved("failed") }))

	hooks.Register(extensions.HookCacheHit, count(metrics.CacheHit))
	hooks.Register(extensions.HookCacheMiss, count(metrics.CacheMiss))

	hooks.Register(extensions.HookConfigReloaded, count(metrics.ConfigReloaded))
}

// ProvideBackendClient creates the upstream workflow backend client and
// exposes its breaker state as a gauge.
func ProvideBackendClient(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (*backendapi.Client, error) {
	client, err := backendapi.NewClient(cfg.Backend, logger)
	if err != nil {
		return nil, err
	}
	metrics.RegisterBreakerState(metricsNamespace, func() float64 {
		return float64(client.BreakerState())
	})
	return client, nil
}

// ProvideGraphBackend exposes the client through its port.
func ProvideGraphBackend(client *backendapi.Client) ports.GraphBackend {
	return client
}

// ProvideDraftStore creates the crash-recovery draft store, or the noop
// store when drafts are disabled.
func ProvideDraftStore(cfg *config.Config, logger *zap.Logger) (ports.DraftStore, error) {
	if !cfg.Draft.Enabled {
		return draft.NewNoopStore(), nil
	}
	dir, err := cfg.ResolveDraftDir()
	if err != nil {
		return nil, err
	}
	return draft.NewFileStore(dir, logger)
}

// ProvideCache creates the in-memory cache backing validation reports.
func ProvideCache() ports.Cache {
	return NewInMemoryCache()
}

// ProvideEventPublisher creates the metrics-and-log event fan-out.
func ProvideEventPublisher(metrics *observability.Collector, logger *zap.Logger) ports.EventPublisher {
	return events.NewFanoutPublisher(metrics, logger)
}

// ProvideDomainConfig projects the loaded configuration onto the domain
// limits.
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return cfg.DomainConfig()
}

// ProvideCanvas creates the working document.
func ProvideCanvas(dc *domainconfig.DomainConfig) *aggregates.Canvas {
	return aggregates.NewCanvas("", dc)
}

// ProvideLayoutFunc selects the automatic-layout implementation.
func ProvideLayoutFunc() ports.LayoutFunc {
	return layout.Layered()
}

// ProvideEditorOptions maps config onto the editor's timer settings.
func ProvideEditorOptions(cfg *config.Config) editor.Options {
	return editor.Options{
		AutosaveDelay: cfg.Editor.AutosaveDelay,
		UndoTTL:       cfg.Editor.UndoTTL,
	}
}

// ProvideEditorService wires the editor around the working document.
func ProvideEditorService(
	canvas *aggregates.Canvas,
	backend ports.GraphBackend,
	drafts ports.DraftStore,
	cache ports.Cache,
	publisher ports.EventPublisher,
	layoutFn ports.LayoutFunc,
	hooks *extensions.HookManager,
	opts editor.Options,
	logger *zap.Logger,
) *editor.EditorService {
	return editor.NewEditorService(canvas, backend, drafts, cache, publisher, layoutFn, hooks, opts, logger)
}

// ProvideSessionManager wires the chat session manager.
func ProvideSessionManager(
	backend ports.GraphBackend,
	dc *domainconfig.DomainConfig,
	hooks *extensions.HookManager,
	logger *zap.Logger,
) *session.Manager {
	return session.NewManager(backend, dc, hooks, logger)
}
