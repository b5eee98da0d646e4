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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultgraph/internal/api"
	"github.com/starford/vaultgraph/internal/engine"
	"github.com/starford/vaultgraph/internal/graphservice"
	"github.com/starford/vaultgraph/internal/index"
	"github.com/starford/vaultgraph/internal/mcpserver"
	"github.com/starford/vaultgraph/internal/render"
	"github.com/starford/vaultgraph/internal/sse"
	"github.com/starford/vaultgraph/internal/storage"
)

// renderStep is the simulated time per headless layout step.
const renderStep = 1.0 / 60

// services is the state shared by every command.
type services struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
}

func (rt *services) close() {
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			rt.logger.Warn("close index", slog.String("error", err.Error()))
		}
	}
}

// searcher returns the index as a graphservice.Searcher, or a nil
// interface when no index is configured.
func (rt *services) searcher() graphservice.Searcher {
	if rt.db == nil {
		return nil
	}
	return rt.db
}

func (rt *services) newEngine(onActivate func(string)) (*engine.Engine, error) {
	settings, err := rt.cfg.Settings()
	if err != nil {
		return nil, err
	}
	opts := engine.Options{
		Provider:   rt.store,
		SkipDirs:   rt.cfg.Vault.SkipDirs,
		Settings:   settings,
		OnActivate: onActivate,
		Logger:     rt.logger,
	}
	if rt.db != nil {
		opts.Content = rt.db
	}
	return engine.New(opts), nil
}

func setup(opts ...Option) (*services, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logOutput == nil {
		app.logOutput = os.Stdout
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("index_path", cfg.Index.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Vault.Path, cfg.Vault.SkipDirs...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	rt := &services{cfg: cfg, logger: logger, store: store}

	if cfg.Index.Enabled() {
		if err := os.MkdirAll(filepath.Dir(cfg.Index.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		db, err := index.Open(cfg.Index.Path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		rt.db = db

		// Run initial sync.
		if err := index.Sync(db, store, logger); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}

	return rt, nil
}

func (rt *services) watch(ctx context.Context, loop *engine.Loop, onChange index.EventCallback) error {
	return index.Watch(ctx, index.WatchOptions{
		Root:      rt.store.Root(),
		SkipDirs:  rt.cfg.Vault.SkipDirs,
		DB:        rt.db,
		Source:    rt.store,
		Logger:    rt.logger,
		OnChange:  onChange,
		OnSettled: loop.RequestRebuild,
	})
}

// layoutPayload is the body of a layout.updated event. Positions are
// indexed like the nodes of the graph.rebuilt snapshot with Version.
type layoutPayload struct {
	Version   uint64       `json:"version"`
	Frame     uint64       `json:"frame"`
	Positions [][2]float64 `json:"positions"`
}

func newLayoutPayload(s *engine.Snapshot) layoutPayload {
	p := layoutPayload{
		Version:   s.Version,
		Frame:     s.Frame,
		Positions: make([][2]float64, len(s.Nodes)),
	}
	for i, n := range s.Nodes {
		p.Positions[i] = [2]float64{n.X, n.Y}
	}
	return p
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts...)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg, logger := rt.cfg, rt.logger

	// SSE broker.
	broker := sse.NewBroker(250 * time.Millisecond)
	defer broker.Close()

	e, err := rt.newEngine(func(absPath string) {
		broker.Publish(sse.Event{Type: sse.EventNodeActivated, Data: map[string]string{"path": absPath}})
	})
	if err != nil {
		return err
	}

	loop := engine.NewLoop(e, cfg.Graph.FPS, logger)
	loop.OnRebuild = func(s *engine.Snapshot) {
		broker.Publish(sse.Event{Type: sse.EventGraphRebuilt, Data: s})
	}
	loop.OnFrame = func(s *engine.Snapshot) {
		broker.PublishLayout(newLayoutPayload(s))
	}

	// Build graph service and router.
	svc := graphservice.NewService(loop, rt.searcher())
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if loop.Snapshot().Version == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"building"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Drive the layout.
	g.Go(func() error {
		return loop.Run(gCtx)
	})

	// Start file watcher with SSE callback.
	g.Go(func() error {
		if err := rt.watch(gCtx, loop, broker.PublishChange); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
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

// errShutdown cancels the group once a shutdown has been requested so
// the loop and watcher return too.
var errShutdown = errors.New("shutdown requested")

// Render scans the vault once, settles the layout for cfg.Render.Steps
// steps and writes a single image to cfg.Render.Output or out.
func Render(ctx context.Context, out io.Writer, opts ...Option) error {
	rt, err := setup(opts...)
	if err != nil {
		return err
	}
	defer rt.close()

	rc := rt.cfg.Render
	format, err := render.ParseFormat(rc.Format)
	if err != nil {
		return err
	}

	e, err := rt.newEngine(nil)
	if err != nil {
		return err
	}
	if err := e.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuild graph: %w", err)
	}
	for i := 0; i < rc.Steps; i++ {
		if i%64 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		e.Step(renderStep)
	}

	if rc.Output != "" && rc.Output != "-" {
		f, err := os.Create(rc.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := e.WriteImage(out, format, rc.Width, rc.Height); err != nil {
		return err
	}

	rt.logger.Info("Graph rendered",
		slog.String("format", string(format)),
		slog.String("output", rc.Output),
		slog.Int("nodes", e.Graph().Len()),
		slog.Int("steps", rc.Steps))
	return nil
}

// ServeMCP exposes the graph over MCP on stdin/stdout. Logs must not go
// to stdout; callers pass WithLogOutput(os.Stderr).
func ServeMCP(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts...)
	if err != nil {
		return err
	}
	defer rt.close()

	e, err := rt.newEngine(nil)
	if err != nil {
		return err
	}
	loop := engine.NewLoop(e, rt.cfg.Graph.FPS, rt.logger)
	svc := graphservice.NewService(loop, rt.searcher())
	srv := mcpserver.New(svc, rt.store, rt.db != nil)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gCtx)
	})
	g.Go(func() error {
		if err := rt.watch(gCtx, loop, nil); err != nil {
			rt.logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})
	g.Go(func() error {
		rt.logger.Info("MCP server starting on stdio")
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		return err
	}
	return nil
}
