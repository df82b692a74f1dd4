package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"cvbuilder/internal/config"
	"cvbuilder/internal/database"
	"cvbuilder/internal/metrics"
	"cvbuilder/internal/notify"
	"cvbuilder/internal/pdf"
	"cvbuilder/internal/storage"
	"cvbuilder/internal/store"
	"cvbuilder/internal/tasks"
	"cvbuilder/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx := context.Background()

	db, err := database.InitDatabase(cfg.Database, logger)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger.Info("database connection ready for worker")
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warn("close database failed", slog.Any("error", err))
		}
	}()

	if cfg.Store.Driver == config.StoreDriverMemory {
		logger.Warn("memory document store is process local; exports will not find documents created by the api")
	}
	docs, closeStore, err := store.Open(ctx, cfg, db)
	if err != nil {
		log.Fatalf("open document store: %v", err)
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			logger.Error("close document store failed", slog.Any("error", err))
		}
	}()

	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Export.Concurrency,
		Logger:      newAsynqLogger(logger),
	})

	exportHandler := worker.NewExportHandler(
		db,
		docs,
		pdf.RodRenderer{Timeout: cfg.Export.Timeout},
		storageClient,
		notify.NewPublisher(redisClient),
		logger,
	)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeResumeExport, exportHandler)

	logger.Info("worker service started",
		slog.String("redis_addr", cfg.Redis.Addr()),
		slog.Int("concurrency", cfg.Export.Concurrency),
	)
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
