// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/svgview/internal/api"
	"github.com/starford/svgview/internal/clipboard"
	"github.com/starford/svgview/internal/commands"
	"github.com/starford/svgview/internal/loop"
	"github.com/starford/svgview/internal/mcpserver"
	"github.com/starford/svgview/internal/notify"
	"github.com/starford/svgview/internal/raster"
	"github.com/starford/svgview/internal/settings"
	"github.com/starford/svgview/internal/sse"
	"github.com/starford/svgview/internal/statestore"
	"github.com/starford/svgview/internal/storage"
	"github.com/starford/svgview/internal/view"
	"github.com/starford/svgview/internal/webview"
	"github.com/starford/svgview/internal/workspace"
	pkgconfig "github.com/starford/svgview/pkg/config"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_root", cfg.Workspace.Root),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("raster_engine", cfg.Raster.Engine),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize storage.
	store, err := storage.NewFS(cfg.Workspace.Root)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite panel state.
	db, err := statestore.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init panel state: %w", err)
	}
	defer db.Close()

	rasterizer, err := raster.New(cfg.Raster.Options())
	if err != nil {
		return fmt.Errorf("init rasterizer: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l := loop.New(logger)
	defer l.Close()

	broker := sse.NewBroker()
	defer broker.Close()

	notifier := notify.Multi(notify.Logger(logger), notify.Broadcaster(broker))
	viewer := settings.NewStore(cfg.Viewer)
	ws := workspace.New(store, l, logger)
	panels := webview.New(broker, db, l, logger)

	deps := view.Deps{
		Workspace: ws,
		Panels:    panels,
		Settings:  viewer,
		Notifier:  notifier,
		Loop:      l,
		Logger:    logger,
	}
	saver := commands.NewSaver(store, notifier, logger)
	previews := view.NewPreviewManager(deps)
	exports := view.NewExportManager(deps, saver.Save)
	panels.RegisterSerializer(view.PreviewViewType, previews)
	panels.RegisterSerializer(view.ExportViewType, exports)

	var revived int
	var reviveErr error
	if err := l.Do(ctx, func() { revived, reviveErr = panels.Revive() }); err != nil {
		return fmt.Errorf("revive panels: %w", err)
	}
	if reviveErr != nil {
		logger.Warn("panel revive failed", slog.String("error", reviveErr.Error()))
	} else if revived > 0 {
		logger.Info("Panels revived", slog.Int("count", revived))
	}

	viewer.OnDidChange(func(settings.Viewer) {
		l.Post(func() {
			previews.Refresh()
			exports.Refresh()
		})
	})

	cmds := commands.New(commands.Deps{
		Documents:  ws,
		Previews:   previews,
		Exports:    exports,
		Settings:   viewer,
		Rasterizer: rasterizer,
		Clipboard:  clipboard.NewTerminal(os.Stderr),
		Saver:      saver,
		Notifier:   notifier,
		Loop:       l,
		Logger:     logger,
	})

	// Build API handler and router.
	handler := api.NewHandler(cmds, ws, panels, broker)
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api and the panel pages at the root.
	r.Mount("/api", apiRouter)
	api.MountShell(r, handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("panels_url", cfg.App.HTTP.BaseURL()+webview.PanelPath("{id}")))

	g, gCtx := errgroup.WithContext(ctx)

	// Start workspace watcher with SSE callback.
	g.Go(func() error {
		return ws.Watch(gCtx, func(kind, path string) {
			broker.Publish(sse.GlobalTopic, sse.Event{
				Type: "file",
				Data: map[string]string{"kind": kind, "path": path},
			})
		})
	})

	// Reload viewer settings when the config file changes.
	if app.configFile != "" {
		g.Go(func() error {
			return pkgconfig.Watch(gCtx, app.configFile, func() {
				reloadViewer(app.configFile, viewer, logger)
			})
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Serve MCP tools on stdio; closing stdin stops the application.
	if app.mcpIn != nil {
		srv := mcpserver.New(cmds, ws, panels)
		g.Go(func() error {
			defer cancel()
			logger.Info("Starting MCP server on stdio")
			if err := srv.Serve(gCtx, app.mcpIn, app.mcpOut); err != nil &&
				!errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Panels closed by shutdown keep their records for the next start.
		panels.Shutdown()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		if err := l.Do(shutdownCtx, func() {
			previews.Dispose()
			exports.Dispose()
		}); err != nil {
			logger.Error("Dispose views failed", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// reloadViewer re-reads the viewer section of the config file and swaps it
// in. A file that fails to load or validate leaves the settings unchanged.
func reloadViewer(path string, viewer *settings.Store, logger *slog.Logger) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		logger.Warn("config reload failed", slog.String("error", err.Error()))
		return
	}
	viewer.Set(cfg.Viewer)
	logger.Info("Viewer settings reloaded",
		slog.String("preview_column", string(cfg.Viewer.PreviewColumn)),
		slog.Bool("auto_preview", cfg.Viewer.EnableAutoPreview))
}
