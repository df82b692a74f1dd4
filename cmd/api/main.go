package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"cvbuilder/internal/api"
	"cvbuilder/internal/auth"
	"cvbuilder/internal/config"
	"cvbuilder/internal/database"
	"cvbuilder/internal/guard"
	"cvbuilder/internal/metrics"
	"cvbuilder/internal/notify"
	"cvbuilder/internal/storage"
	"cvbuilder/internal/store"
	"cvbuilder/internal/suggest"
)

func main() {
	cfg := config.MustLoad()

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("api bootstrapping",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("store_driver", cfg.Store.Driver),
	)

	db, err := database.InitDatabase(cfg.Database, logger)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	logger.Info("database migrated")
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warn("close database failed", slog.Any("error", err))
		}
	}()

	docs, closeStore, err := store.Open(ctx, cfg, db)
	if err != nil {
		log.Fatalf("open document store: %v", err)
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			logger.Error("close document store failed", slog.Any("error", err))
		}
	}()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	authService, err := auth.NewAuthServiceFromFiles(
		cfg.Auth.PrivateKeyPath,
		cfg.Auth.PublicKeyPath,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	publisher := notify.NewPublisher(redisClient)
	versionGuard := guard.New(docs, guard.WithObserver(guard.Observers{
		metrics.GuardObserver{},
		notify.NewResumeObserver(publisher, logger),
	}))

	suggestions := suggest.NewService(suggest.NewCache(cfg.Suggest.CacheSize, cfg.Suggest.CacheTTL))
	if err := metrics.RegisterSuggestCache(suggestions); err != nil {
		logger.Warn("register suggestion cache metrics failed", slog.Any("error", err))
	}

	router := api.NewRouter(logger, cfg.API.MetricsSecret)
	api.RegisterRoutes(router, api.Dependencies{
		DB:          db,
		Docs:        docs,
		Guard:       versionGuard,
		AuthService: authService,
		Redis:       redisClient,
		Queue:       asynqClient,
		Objects:     storageClient,
		Suggestions: suggestions,
		Logger:      logger,
		Export: api.ExportOptions{
			MaxRetry: cfg.Export.MaxRetry,
			Timeout:  cfg.Export.Timeout,
			LinkTTL:  cfg.Export.LinkTTL,
		},
		AuthRatePerMinute: cfg.Auth.RateLimitPerMinute,
		AllowedOrigins:    cfg.API.AllowedOrigins,
		CookieDomain:      cfg.Auth.CookieDomain,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("api shutdown failed", slog.Any("error", err))
		}
	}()

	logger.Info("api listening", slog.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to start api server: %v", err)
	}
	logger.Info("api stopped")
}
