package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/library-management/internal/config"
	"github.com/iliyamo/library-management/internal/database"
	"github.com/iliyamo/library-management/internal/handler"
	"github.com/iliyamo/library-management/internal/logger"
	"github.com/iliyamo/library-management/internal/metrics"
	"github.com/iliyamo/library-management/internal/middleware"
	"github.com/iliyamo/library-management/internal/queue"
	"github.com/iliyamo/library-management/internal/repository"
	"github.com/iliyamo/library-management/internal/router"
	"github.com/iliyamo/library-management/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// the logger level comes from config, so fall back to a default one
		logger.New("info", "development").Fatal("load config", zap.Error(err))
	}
	log := logger.New(cfg.LogLevel, cfg.Env)
	defer func() { _ = log.Sync() }()

	if cfg.DB.MigrateOnStart {
		if err := database.Migrate(cfg.DB, log); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}
	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	store := repository.NewStore(db, logger.WithComponent(log, "store"), repository.WithMaxAttempts(cfg.TxMaxAttempts))
	users := repository.NewUserRepo()
	books := repository.NewBookRepo()
	borrows := repository.NewBorrowRepo()
	tokens := repository.NewTokenRepo()
	stats := repository.NewStatsRepo()

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL, cfg.BorrowEventsQueue, logger.WithComponent(log, "publisher"))
		defer pub.Close()
		events = pub
		if cfg.BorrowAuditConsumer {
			audit := queue.NewAuditConsumer(cfg.AMQPURL, cfg.BorrowEventsQueue, cfg.BorrowAuditLogPath, logger.WithComponent(log, "audit"))
			go audit.Run(ctx)
		}
	}

	sessions := service.NewSessionService(store, users, tokens, service.SessionConfig{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}, logger.WithComponent(log, "session"), service.WithSessionRecorder(reg))
	accounts := service.NewAuthService(store, users, sessions, cfg.BcryptCost, logger.WithComponent(log, "auth"))
	guard := service.NewAccessGuard(store, users)
	lending := service.NewBorrowService(store, users, books, borrows, events, logger.WithComponent(log, "borrow"), service.WithBorrowRecorder(reg))
	catalog := service.NewCatalogService(store, books, borrows, logger.WithComponent(log, "catalog"))
	admin := service.NewUserAdminService(store, users, logger.WithComponent(log, "users"))
	reports := service.NewStatsService(store, users, books, borrows, stats, logger.WithComponent(log, "stats"))

	sweeper := service.NewRevocationSweeper(store, tokens, cfg.RevocationSweepInterval, reg.Purged, logger.WithComponent(log, "sweeper"))
	go sweeper.Run(ctx)

	rl := config.LoadRateLimitConfig()
	var limiter redis.Scripter
	if rdb := config.NewRedisClient(config.LoadRedisConfig(), log); rdb != nil {
		defer rdb.Close()
		limiter = rdb
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = handler.JSONSerializer{}
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger.WithComponent(log, "http")))
	e.Use(reg.Middleware())

	router.Register(e, router.Deps{
		Auth:          handler.NewAuthHandler(accounts, sessions, log),
		Users:         handler.NewUserHandler(admin, log),
		Books:         handler.NewBookHandler(catalog, log),
		Borrows:       handler.NewBorrowHandler(lending, log),
		Stats:         handler.NewStatsHandler(reports, log),
		Sessions:      sessions,
		Guard:         guard,
		DB:            db,
		Metrics:       reg.Handler(),
		RateLimit:     middleware.NewTokenBucket(rl, rl.Capacity, limiter, log),
		MutationLimit: middleware.NewTokenBucket(middleware.ScopedKey(rl, "borrow"), rl.MutationCapacity, limiter, log),
	})

	go func() {
		log.Info("listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGraceTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
