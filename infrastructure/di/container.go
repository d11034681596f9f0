// Package di wires the bridge's dependency graph. Providers live in
// providers.go; the injector is generated by Wire from wire.go.
package di

import (
	"go.uber.org/zap"

	"flowcanvas/application/editor"
	"flowcanvas/application/ports"
	"flowcanvas/application/session"
	"flowcanvas/infrastructure/config"
	"flowcanvas/pkg/extensions"
	"flowcanvas/pkg/observability"
)

// Container holds the bridge's wired dependencies.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *observability.Collector
	Hooks     *extensions.HookManager
	Backend   ports.GraphBackend
	Drafts    ports.DraftStore
	Cache     ports.Cache
	Publisher ports.EventPublisher
	Editor    *editor.EditorService
	Sessions  *session.Manager
}

// Shutdown releases everything the container owns. The editor goes
// first so no timer callback touches a closed draft store.
func (c *Container) Shutdown() {
	if c.Editor != nil {
		c.Editor.Close()
	}
	if closer, ok := c.Drafts.(interface{ Close() }); ok {
		closer.Close()
	}
	if closer, ok := c.Cache.(interface{ Close() }); ok {
		closer.Close()
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}
