package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hutchutchutch/learntrac/internal/cache"
	"github.com/hutchutchutch/learntrac/internal/config"
	"github.com/hutchutchutch/learntrac/internal/domain/mastery"
	"github.com/hutchutchutch/learntrac/internal/events"
	"github.com/hutchutchutch/learntrac/internal/platform/logger"
	"github.com/hutchutchutch/learntrac/internal/platform/postgres"
	"github.com/hutchutchutch/learntrac/internal/service"
	"github.com/hutchutchutch/learntrac/internal/task"
)

// application holds the assembled dependencies of the server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	snapshots   cache.SnapshotCache
	redisClient *redis.Client

	graphService     *service.GraphService
	progressService  *service.ProgressService
	analyticsService *service.AnalyticsService

	taskRunner  *task.Runner
	taskFactory *task.CohortRefreshTaskFactory
	pathLister  pathLister
}

// initializeApp loads configuration and wires every component together.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)
	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"cache_backend", cfg.Cache.Backend)

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return nil, err
	}

	app := &application{
		config: cfg,
		logger: appLogger,
		db:     db,
	}

	if err := app.setupCache(); err != nil {
		app.close()
		return nil, err
	}
	if err := app.setupServices(); err != nil {
		app.close()
		return nil, err
	}

	return app, nil
}

// setupCache selects the snapshot cache backend from configuration.
func (app *application) setupCache() error {
	switch app.config.Cache.Backend {
	case "redis":
		app.redisClient = redis.NewClient(&redis.Options{
			Addr: app.config.Cache.RedisAddr,
			DB:   app.config.Cache.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}

		app.snapshots = cache.NewRedisCache(app.redisClient, app.config.Cache.TTL)
		app.logger.Info("using redis snapshot cache", "redis_db", app.config.Cache.RedisDB)
	default:
		app.snapshots = cache.NewMemoryCache(app.config.Cache.TTL)
		app.logger.Info("using in-memory snapshot cache")
	}
	return nil
}

// setupServices wires the stores, services, event handlers, and task
// machinery together.
func (app *application) setupServices() error {
	conceptStore := postgres.NewPostgresConceptStore(app.db, app.logger)
	edgeStore := postgres.NewPostgresEdgeStore(app.db, app.logger)
	pathStore := postgres.NewPostgresPathStore(app.db, app.logger)
	progressStore := postgres.NewPostgresProgressStore(app.db, app.logger)
	taskStore := postgres.NewPostgresTaskStore(app.db, app.logger)
	app.pathLister = pathStore

	emitter := events.NewInMemoryEventEmitter(app.logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	graphService, err := service.NewGraphService(
		ctx, conceptStore, edgeStore, pathStore, emitter, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create graph service: %w", err)
	}
	app.graphService = graphService

	// An unset threshold falls back to the service default.
	var params *mastery.Params
	if app.config.Mastery.Threshold > 0 {
		params = &mastery.Params{MasteryThreshold: app.config.Mastery.Threshold}
	}
	progressService, err := service.NewProgressService(
		app.db, progressStore, conceptStore, graphService.Index(), params, emitter, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create progress service: %w", err)
	}
	app.progressService = progressService

	analyticsService, err := service.NewAnalyticsService(
		progressStore, conceptStore, pathStore, graphService.Index(), app.snapshots, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create analytics service: %w", err)
	}
	app.analyticsService = analyticsService

	emitter.RegisterHandler(service.NewSnapshotInvalidationHandler(app.snapshots, app.logger))

	app.taskFactory = task.NewCohortRefreshTaskFactory(analyticsService, app.logger)
	app.taskRunner = task.NewRunner(taskStore, task.RunnerConfig{
		WorkerCount:            app.config.Task.WorkerCount,
		QueueSize:              app.config.Task.QueueSize,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}, app.taskFactory.ResolveTask, app.logger)

	return nil
}

// close releases the application's external resources.
func (app *application) close() {
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Warn("failed to close redis client", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn("failed to close database", "error", err)
		}
	}
}
