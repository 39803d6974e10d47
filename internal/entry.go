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

	"github.com/starford/ithaca/internal/api"
	"github.com/starford/ithaca/internal/catalog"
	"github.com/starford/ithaca/internal/game"
	"github.com/starford/ithaca/internal/index"
	"github.com/starford/ithaca/internal/mcpserver"
	"github.com/starford/ithaca/internal/metrics"
	"github.com/starford/ithaca/internal/present"
	"github.com/starford/ithaca/internal/sse"
	"github.com/starford/ithaca/internal/storage"
)

// runtime is everything both entry points share.
type runtime struct {
	logger   *slog.Logger
	store    storage.Provider
	catalogs *catalog.Holder
	db       *index.DB
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// bootstrap opens the save directory, the catalog and the search index.
// An unwritable save directory degrades to in-memory saves.
func bootstrap(cfg *Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{logger: logger}

	if err := os.MkdirAll(cfg.Save.Dir, 0o755); err != nil {
		logger.Warn("save dir unavailable, progress will not persist",
			slog.String("dir", cfg.Save.Dir), slog.String("error", err.Error()))
		rt.store = storage.NewMemory()
	} else {
		fs, err := storage.NewFS(cfg.Save.Dir)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		rt.store = fs
	}

	var (
		c   *catalog.Catalog
		err error
	)
	if cfg.Catalog.Path != "" {
		c, err = catalog.LoadFile(cfg.Catalog.Path)
	} else {
		c, err = catalog.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	rt.catalogs = catalog.NewHolder(c)

	db, err := index.Open(cfg.Search.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	rt.db = db
	return rt, nil
}

// watchCatalog hot-reloads the catalog file into svc until ctx ends.
func watchCatalog(ctx context.Context, cfg *Config, svc *game.Service, logger *slog.Logger) error {
	return catalog.Watch(ctx, cfg.Catalog.Path, logger, func(c *catalog.Catalog) {
		if err := svc.ReloadCatalog(ctx, c); err != nil {
			logger.Warn("catalog reload failed", slog.String("error", err.Error()))
		}
	})
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(os.Stdout, cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("save_dir", cfg.Save.Dir),
		slog.String("search_path", cfg.Search.Path),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt, err := bootstrap(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	m := metrics.New()

	svc := game.New(rt.store, rt.catalogs, logger,
		game.WithIndex(rt.db),
		game.WithSink(present.Multi{broker, m, present.LogSink(logger)}),
		game.WithEntryObserver(func(kind, id string) {
			broker.PublishEntryEvent(kind, id)
			m.ObserveEntry(kind, id)
		}),
		game.WithSynthesisDelay(cfg.Story.SynthesisDelay),
	)
	defer svc.Close()

	m.TrackProgress(svc.Progress)
	m.TrackClients(broker.ClientCount)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	r.Handle("/metrics", m.Handler())

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := svc.Progress(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Catalog.Watch {
		g.Go(func() error {
			if err := watchCatalog(gCtx, cfg, svc, logger); err != nil {
				// A broken watcher leaves the loaded catalog in place.
				logger.Error("catalog watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server has been asked to stop.
var errShutdown = errors.New("shutdown")

// RunMCP serves the journal over MCP on stdin/stdout. Logs go to stderr so
// they never interleave with protocol frames.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(os.Stderr, cfg.App.LogLevel)

	rt, err := bootstrap(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	svc := game.New(rt.store, rt.catalogs, logger,
		game.WithIndex(rt.db),
		game.WithSink(present.LogSink(logger)),
		game.WithSynthesisDelay(cfg.Story.SynthesisDelay),
	)
	defer svc.Close()

	g, gCtx := errgroup.WithContext(ctx)
	if cfg.Catalog.Watch {
		g.Go(func() error {
			if err := watchCatalog(gCtx, cfg, svc, logger); err != nil {
				logger.Error("catalog watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}
	g.Go(func() error {
		logger.Info("MCP server starting on stdio", slog.String("version", app.version))
		err := mcpserver.New(svc, app.version).ServeStdio()
		if err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		return err
	}
	return nil
}
