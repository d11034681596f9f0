package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flowcanvas/infrastructure/config"
	"flowcanvas/infrastructure/di"
	"flowcanvas/interfaces/http/rest"
	"flowcanvas/pkg/extensions"
	"flowcanvas/pkg/ratelimit"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local bridge server",
		Long: `Start the HTTP bridge between the canvas UI and the workflow backend.

The server keeps the working document in memory: edits are debounced
and autosaved upstream, deletions stay undoable for a grace window, and
crash-recovery drafts are written locally. Chat executions are relayed
to the backend with the session's recent context attached.`,
		Example: `  # Serve with defaults (127.0.0.1:8087)
  flowcanvas serve

  # Point at a different workflow backend
  flowcanvas serve --backend-url http://localhost:9000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()

	cfg, err := config.Load(cfgFile, flags)
	if err != nil {
		return err
	}

	container, err := di.InitializeContainer(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer container.Shutdown()
	logger := container.Logger

	var limiter *ratelimit.IPLimiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewIPLimiter(cfg.RateLimit.RequestsPerMinute)
		defer limiter.Stop()
	}

	// Live-reload tuning values while the server runs. No config file
	// means nothing to watch.
	if path := config.FindConfigFile(cfgFile); path != "" {
		watcher, werr := config.NewWatcher(path, cfg, flags, logger)
		if werr != nil {
			logger.Warn("config watcher disabled", zap.Error(werr))
		} else {
			watcher.OnChange(liveConfigHandler(container, limiter))
			watcher.Start()
			defer watcher.Stop()
		}
	}

	router := rest.NewRouter(cfg, container.Editor, container.Sessions, container.Metrics, limiter, logger)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bridge listening",
			zap.String("address", cfg.Addr()),
			zap.String("environment", cfg.Environment),
			zap.String("backend", cfg.Backend.BaseURL),
		)
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case serveErr := <-errCh:
		return fmt.Errorf("server failed: %w", serveErr)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	return nil
}

// liveConfigHandler applies reloaded tuning values to the running
// components. Keys outside this set need a restart; the watcher already
// warns about them.
func liveConfigHandler(container *di.Container, limiter *ratelimit.IPLimiter) func(old, next *config.Config) {
	return func(old, next *config.Config) {
		if old.Editor.AutosaveDelay != next.Editor.AutosaveDelay {
			container.Editor.SetAutosaveDelay(next.Editor.AutosaveDelay)
		}
		if old.Editor.UndoTTL != next.Editor.UndoTTL {
			container.Editor.SetUndoTTL(next.Editor.UndoTTL)
		}
		if old.Session.ContextWindow != next.Session.ContextWindow {
			container.Sessions.SetContextWindow(next.Session.ContextWindow)
		}
		if limiter != nil && old.RateLimit.RequestsPerMinute != next.RateLimit.RequestsPerMinute {
			limiter.SetLimit(next.RateLimit.RequestsPerMinute)
		}

		container.Hooks.ExecuteAsync(context.Background(), extensions.HookConfigReloaded, extensions.HookData{
			Subject:   "config",
			Operation: "reloaded",
			Detail:    map[string]interface{}{"changes": config.LiveChanges(old, next)},
		})
	}
}
