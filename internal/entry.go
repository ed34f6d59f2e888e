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

	"github.com/pcormier/voxnote/internal/ai"
	"github.com/pcormier/voxnote/internal/api"
	"github.com/pcormier/voxnote/internal/audiostore"
	"github.com/pcormier/voxnote/internal/mcpserver"
	"github.com/pcormier/voxnote/internal/noteservice"
	"github.com/pcormier/voxnote/internal/notestore"
	"github.com/pcormier/voxnote/internal/sse"
	"github.com/pcormier/voxnote/internal/transcriber"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("uploads_path", cfg.Uploads.Path),
		slog.String("ai_model", cfg.AI.Model),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure uploads directory exists.
	if err := os.MkdirAll(cfg.Uploads.Path, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}

	// Initialize audio blob store.
	blobs, err := audiostore.NewFS(cfg.Uploads.Path)
	if err != nil {
		return fmt.Errorf("init audio store: %w", err)
	}

	// Initialize SQLite note store.
	store, err := notestore.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init note store: %w", err)
	}
	defer store.Close()

	// AI gateway and background transcription runner.
	gateway := ai.NewGemini(ai.GeminiConfig{
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		BaseURL: cfg.AI.BaseURL,
		Timeout: cfg.AI.Timeout(),
	})
	runner := transcriber.NewRunner(store, gateway, logger, cfg.AI.Timeout())

	// SSE broker; transcription outcomes are pushed to connected clients.
	broker := sse.NewBroker()
	defer broker.Close()
	runner.OnComplete(func(id string, failed bool) {
		kind := sse.EventTranscriptionCompleted
		if failed {
			kind = sse.EventTranscriptionFailed
		}
		broker.Publish(kind, id)
	})

	// Build note service and router.
	svc := noteservice.NewService(store, blobs, gateway, runner, logger)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)
	uploads := api.NewUploadsHandler(blobs)

	// Build chi root router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.CORS(cfg.CORS.AllowedOrigins))
	r.Use(api.RateLimit(cfg.RateLimit.RequestsPerMinute))

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

	// Stored audio blobs (unauthenticated, like the notes' audio URLs).
	r.Get("/uploads/{filename}", uploads.ServeFile)

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the uploads dir for blobs removed behind the server's back.
	g.Go(func() error {
		err := audiostore.Watch(gCtx, blobs.Root(), logger, func(name string) {
			notes, lerr := store.List()
			if lerr != nil {
				return
			}
			for _, n := range notes {
				if n.AudioURL == audiostore.URLPrefix+name {
					logger.Warn("audio blob removed while still referenced",
						slog.String("note_id", n.ID), slog.String("name", name))
				}
			}
		})
		if err != nil {
			logger.Warn("audiostore watcher unavailable", slog.String("error", err.Error()))
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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Drain in-flight transcription jobs so their outcomes are durable.
		drained := make(chan struct{})
		go func() {
			runner.Wait()
			close(drained)
		}()
		select {
		case <-drained:
			logger.Info("Transcription jobs drained")
		case <-time.After(15 * time.Second):
			logger.Warn("Timed out waiting for transcription jobs")
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

// RunMCP starts the MCP server on stdio, backed by the same store and
// gateway configuration as the HTTP server.
func RunMCP(cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Uploads.Path, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	blobs, err := audiostore.NewFS(cfg.Uploads.Path)
	if err != nil {
		return fmt.Errorf("init audio store: %w", err)
	}
	store, err := notestore.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init note store: %w", err)
	}
	defer store.Close()

	gateway := ai.NewGemini(ai.GeminiConfig{
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		BaseURL: cfg.AI.BaseURL,
		Timeout: cfg.AI.Timeout(),
	})
	runner := transcriber.NewRunner(store, gateway, logger, cfg.AI.Timeout())
	svc := noteservice.NewService(store, blobs, gateway, runner, logger)

	return mcpserver.New(svc).ServeStdio()
}
