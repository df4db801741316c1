package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/poll-service/internal/api/http"
	"github.com/spec-kit/poll-service/internal/api/http/handlers"
	"github.com/spec-kit/poll-service/internal/auth"
	"github.com/spec-kit/poll-service/internal/cache"
	"github.com/spec-kit/poll-service/internal/config"
	"github.com/spec-kit/poll-service/internal/events"
	"github.com/spec-kit/poll-service/internal/observability"
	"github.com/spec-kit/poll-service/internal/persistence"
	"github.com/spec-kit/poll-service/internal/repository"
	"github.com/spec-kit/poll-service/internal/service"
	"github.com/spec-kit/poll-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store repository.Store
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pg.PoolHandle(), cfg.Postgres.MaxRetries)
	} else {
		store = repository.NewMemoryStore()
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	guard := cache.NewVoteGuard(cache.NewCache(ctx, redis.Client), cfg.Voting.GuardTTL(), logger)

	loc, err := cfg.App.Location()
	if err != nil {
		logger.Fatal("invalid timezone", zap.Error(err))
	}
	clock := func() time.Time { return time.Now().In(loc) }

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	gate := auth.NewGate()

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:     store.Users,
		SettingsRepo: store.Settings,
		Logger:       logger,
	})
	if _, err := authService.SeedOwner(ctx, cfg.Auth.OwnerName, cfg.Auth.OwnerEmail, cfg.Auth.OwnerPassword); err != nil {
		logger.Fatal("failed to seed owner", zap.Error(err))
	}

	pollService := service.NewPollService(service.PollDependencies{
		PollRepo:   store.Polls,
		VoteLedger: store.Votes,
		UserRepo:   store.Users,
		Gate:       gate,
		VoteGuard:  guard,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Clock:      clock,
	})
	statsService := service.NewStatsService(store, gate, clock)
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   store.Users,
		Stats:      statsService,
		Gate:       gate,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	settingsService := service.NewSettingsService(store.Settings, gate, dispatcher, logger)
	notificationService := service.NewNotificationService(dispatcher, store.Settings, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService, logger)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), store.Users)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Polls:          handlers.NewPollsHandler(pollService, settingsService, store.Users),
		Auth:           handlers.NewAuthHandler(authService, pollService, statsService, gate),
		Admin:          handlers.NewAdminHandler(userService, settingsService, statsService, metrics),
		AuthMiddleware: authMiddleware,
		Gate:           gate,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.ShutdownWithTimeout(10 * time.Second)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
