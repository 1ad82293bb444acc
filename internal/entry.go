// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/reverie/internal/api"
	"github.com/starford/reverie/internal/capture"
	"github.com/starford/reverie/internal/index"
	"github.com/starford/reverie/internal/journal"
	"github.com/starford/reverie/internal/mcpserver"
	"github.com/starford/reverie/internal/sse"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("journal_path", cfg.Journal.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("recorder_device", cfg.Recorder.Device),
		slog.String("log_level", cfg.App.LogLevel.String()))

	j, err := OpenJournal(cfg, logger)
	if err != nil {
		return err
	}
	defer j.Close()

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.JournalThrottle)
	defer broker.Close()

	// Voice capture.
	recorder := capture.NewManager(newDevice(cfg, logger), j.Files, broker, logger,
		capture.WithTickInterval(cfg.Recorder.Tick))

	j.Service = journal.NewService(j.Store, j.DB, j.Files,
		journal.WithEvents(broker),
		journal.WithRecorder(recorder),
		journal.WithLogger(logger))
	apiRouter := api.NewRouter(j.Service, recorder, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the journal directory for changes made outside the server.
	g.Go(func() error {
		err := index.Watch(gCtx, j.DB, j.Store, j.Files, cfg.Journal.Path, logger, func(kind, path string) {
			broker.PublishJournalEvent(kind, map[string]string{"path": path})
		})
		if err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Release the microphone before the process goes away.
		recorder.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the journal over MCP on stdin/stdout. Logs go to the
// configured writer, which must not be stdout.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	slog.SetDefault(app.logger)

	j, err := OpenJournal(app.config, app.logger)
	if err != nil {
		return err
	}
	defer j.Close()

	app.logger.Info("MCP server starting", slog.String("journal_path", app.config.Journal.Path))
	return mcpserver.New(j.Service, app.version).ServeStdio()
}

func newDevice(cfg *Config, logger *slog.Logger) capture.Device {
	if cfg.Recorder.Device != RecorderDeviceCommand {
		return capture.Unavailable{Reason: "server-side recording is disabled"}
	}
	return &capture.CommandDevice{
		Command: cfg.Recorder.Command,
		MIME:    cfg.Recorder.MIME,
		Logger:  logger,
	}
}
