package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-reservation/internal/config"
	"github.com/iliyamo/cinema-reservation/internal/database"
	"github.com/iliyamo/cinema-reservation/internal/handler"
	"github.com/iliyamo/cinema-reservation/internal/logging"
	"github.com/iliyamo/cinema-reservation/internal/middleware"
	"github.com/iliyamo/cinema-reservation/internal/queue"
	"github.com/iliyamo/cinema-reservation/internal/repository"
	"github.com/iliyamo/cinema-reservation/internal/router"
	"github.com/iliyamo/cinema-reservation/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	logger := logging.New("cinema", cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger hclog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		logger.Warn("redis unavailable, caching and rate limiting disabled", "error", err)
	} else {
		defer rdb.Close()
	}

	broker := queue.NewPublisher(cfg.AMQPURL, logger)
	defer broker.Close()
	events := queue.NewAsyncPublisher(broker, 1024, logger)
	defer events.Close()

	if cfg.EventLogPath != "" {
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.EventLogPath, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event consumer stopped", "error", err)
			}
		}()
	}

	e := newServer(cfg, db, rdb, events, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", ":"+cfg.Port, "env", cfg.Env)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newServer(cfg config.Config, db *sql.DB, rdb *redis.Client, events service.EventPublisher, logger hclog.Logger) *echo.Echo {
	store := database.NewStore(db)
	repos := service.NewRepos(db)

	resolver := service.NewAvailabilityResolver(store, repos, logger)
	reservations := service.NewReservationManager(store, repos, resolver, events, logger)
	deactivation := service.NewDeactivationManager(store, repos, events, logger)
	schedules := service.NewScheduleManager(store, repos, service.NewConflictDetector(repos), deactivation, logger)
	movies := service.NewMovieManager(store, repos, deactivation, logger)

	httpLog := logger.Named("http")
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			httpLog.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	rl := config.LoadRateLimitConfig()
	cache := config.LoadCacheConfig()
	purger := middleware.NewPurger(cache, rdb, logger)

	router.Register(e, cfg.JWTSecret, router.Handlers{
		Health:        handler.Health(db),
		Auth:          handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(store), logger),
		Catalogue:     handler.NewCatalogueHandler(movies, repos.Locations, schedules, resolver, logger),
		MovieAdmin:    handler.NewMovieAdminHandler(movies, logger),
		ScheduleAdmin: handler.NewScheduleAdminHandler(schedules, logger),
		Orders:        handler.NewOrderHandler(reservations, logger),
	}, router.Middleware{
		RateLimit:  middleware.RateLimit(rl, rdb, logger),
		OrderLimit: middleware.RateLimit(rl.WithCapacity(rl.OrderCapacity, rl.Prefix+":order"), rdb, logger),
		Cache:      middleware.ResponseCache(cache, rdb, logger),
		PurgeCache: middleware.PurgeOnWrite(purger),
	})
	return e
}
