package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"signage-studio/internal/config"
	"signage-studio/internal/database"
	"signage-studio/internal/event"
	"signage-studio/internal/handler"
	"signage-studio/internal/repository"
	"signage-studio/internal/router"
	"signage-studio/internal/service"
	"signage-studio/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	server  *http.Server
	db      *database.DB
	hub     *websocket.Hub
	auditor *service.SequenceAuditor
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	if cfg.SeedFile != "" {
		seed, err := database.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to load seed: %w", err)
		}
		if err := db.ApplySeed(ctx, seed); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply seed: %w", err)
		}
	}

	pool := db.Pool
	blockRepo := repository.NewBlockRepository(pool)
	sequenceRepo := repository.NewSequenceRepository(pool)
	timelineRepo := repository.NewTimelineRepository(pool)
	slog.Info("database ready")

	bus := event.NewBus()
	hub := websocket.NewHub(bus)

	handlers := router.Handlers{
		Block:     handler.NewBlockHandler(service.NewBlockService(blockRepo, bus)),
		Sequence:  handler.NewSequenceHandler(service.NewSequenceService(sequenceRepo, bus)),
		Timeline:  handler.NewTimelineHandler(service.NewTimelineService(timelineRepo, bus)),
		WebSocket: handler.NewWebSocketHandler(hub, cfg.CORSOrigins),
	}

	var auditor *service.SequenceAuditor
	if cfg.AuditSchedule != "" {
		auditor = service.NewSequenceAuditor(sequenceRepo, bus, cfg.AuditSchedule, cfg.AuditRepair)
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router.New(cfg, handlers, db),
		ReadHeaderTimeout: cfg.ServerReadTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{server: server, db: db, hub: hub, auditor: auditor}, nil
}

// Run serves until ctx is cancelled, then shuts the HTTP server down
// gracefully and closes the database.
func (a *App) Run(ctx context.Context) error {
	defer a.db.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.hub.Run(ctx)
	})

	if a.auditor != nil {
		g.Go(func() error {
			return a.auditor.Run(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("server stopped")
	return nil
}
