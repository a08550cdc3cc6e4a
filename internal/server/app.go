// Package server assembles and runs one salon instance: the WebSocket hub,
// the domain services behind it, the background workers and the REST API,
// all over a shared Postgres store and Redis backbone.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/convivial/salon/internal/logging"
	"github.com/convivial/salon/internal/server/auth"
	"github.com/convivial/salon/internal/server/backbone"
	"github.com/convivial/salon/internal/server/coffee"
	"github.com/convivial/salon/internal/server/config"
	"github.com/convivial/salon/internal/server/dispatch"
	"github.com/convivial/salon/internal/server/gifts"
	"github.com/convivial/salon/internal/server/httpapi"
	"github.com/convivial/salon/internal/server/hub"
	"github.com/convivial/salon/internal/server/presence"
	"github.com/convivial/salon/internal/server/repositories/repomanager"
	"github.com/convivial/salon/internal/server/search"
	"github.com/convivial/salon/internal/server/storage"
)

const shutdownGrace = 10 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	backbone backbone.Backbone
	cache    coffee.Cache

	registry  *hub.Registry
	router    *hub.Router
	wsServer  *hub.Server
	api       *httpapi.API
	revealer  *gifts.Revealer
	scheduler *coffee.Scheduler
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	bb := backbone.NewRedisBackbone(cfg.RedisPubSubAddr, logger)
	cache := coffee.NewRedisCache(cfg.RedisCacheAddr)

	registry := hub.NewRegistry()
	authenticator := auth.NewAuthenticator(cfg.SecretKey, cfg.DevAuth)

	broadcaster := presence.NewBroadcaster(db, repos, bb, logger, cfg.StoreTimeout)
	detector := search.NewDetector(db, repos, bb, logger, cfg.CollisionWindow, cfg.StoreTimeout)
	mediator := gifts.NewMediator(db, repos, bb, logger, cfg.GiftRevealDelay, cfg.StoreTimeout)
	store := storage.NewService(cfg)
	generator := coffee.NewGenerator(db, repos, bb, cache, logger)

	dispatcher := dispatch.New(registry, broadcaster, detector, mediator, generator, store, bb, logger)
	wsServer := hub.NewServer(registry, authenticator, dispatcher, logger, cfg.AllowedOrigin, cfg.AuthTimeout)

	apiService := httpapi.NewService(db, repos, generator, store)
	api := httpapi.New(authenticator, apiService, &healthChecker{registry: registry, backbone: bb}, logger)

	return &App{
		config:    cfg,
		logger:    logger,
		db:        db,
		backbone:  bb,
		cache:     cache,
		registry:  registry,
		router:    hub.NewRouter(registry, bb, logger),
		wsServer:  wsServer,
		api:       api,
		revealer:  gifts.NewRevealer(db, repos, bb, logger, cfg.GiftRevealInterval),
		scheduler: coffee.NewScheduler(generator, logger, cfg.DigestHourUTC),
	}, nil
}

// healthChecker feeds /health from the local registry and the backbone.
type healthChecker struct {
	registry *hub.Registry
	backbone backbone.Backbone
}

func (h *healthChecker) SessionCount() int { return h.registry.Count() }

func (h *healthChecker) BackbonePing(ctx context.Context) error { return h.backbone.Ping(ctx) }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts every component and blocks until the context is cancelled or a
// fatal failure occurs, then drains connections and closes the stores.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting salon", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	root := http.NewServeMux()
	root.HandleFunc("/ws", app.wsServer.ServeWS)
	root.Handle("/", app.api.Router())

	httpServer := &http.Server{Addr: app.config.EndpointAddr, Handler: root}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.router.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			// losing the subscription means no events reach this instance
			app.logger.Error(ctx, "router stopped", "error", err)
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.revealer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error(ctx, "revealer stopped", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error(ctx, "digest scheduler stopped", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "http server stopped", "error", err)
			cancelFunc()
		}
	}()

	<-ctx.Done()
	app.logger.Info(context.Background(), "shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Warn(shutdownCtx, "http shutdown incomplete", "error", err)
	}

	wg.Wait()

	if err := app.backbone.Close(); err != nil {
		app.logger.Warn(context.Background(), "backbone close failed", "error", err)
	}
	if err := app.cache.Close(); err != nil {
		app.logger.Warn(context.Background(), "cache close failed", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(context.Background(), "db close failed", "error", err)
	}
}
