package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"autism-screening/internal/cache"
	"autism-screening/internal/classifier"
	"autism-screening/internal/config"
	"autism-screening/internal/db"
	"autism-screening/internal/logging"
	"autism-screening/internal/pipeline"
	"autism-screening/internal/storage"
	"autism-screening/internal/worker"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := logging.New(env.LogLevel, env.LogFormat, os.Stderr)
	if err := run(env, log); err != nil {
		log.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

func run(env config.Env, log *slog.Logger) error {
	if err := env.Require("DATABASE_URL", "MINIO_BUCKET"); err != nil {
		return err
	}
	screeningCfg, err := config.LoadScreening(env.ScreeningConfig)
	if err != nil {
		return err
	}
	if env.FaceClassifierURL == "" || env.VoiceClassifierURL == "" {
		log.Warn("classifier url not set; its modalities will be NotAvailable",
			"face", env.FaceClassifierURL, "voice", env.VoiceClassifierURL)
	}

	ctx := context.Background()
	dbase, err := db.Open(ctx, env.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbase.Close()

	s3c, err := storage.New(ctx, storage.Options{
		Endpoint:  env.MinioEndpoint,
		Bucket:    env.MinioBucket,
		AccessKey: env.MinioAccessKey,
		SecretKey: env.MinioSecretKey,
	})
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{Addr: env.RedisAddr})
	defer rdb.Close()

	log.Info("worker starting", "redis", env.RedisAddr, "concurrency", env.WorkerConcurrency)
	return worker.Run(env.RedisAddr, env.WorkerConcurrency, &worker.Server{
		Store:      db.NewStore(dbase),
		Media:      s3c,
		Classifier: classifier.New(env.FaceClassifierURL, env.VoiceClassifierURL, env.ClassifierTimeout, log),
		Screener:   pipeline.New(screeningCfg),
		Cache:      cache.NewReportCache(rdb, env.ReportCacheTTL),
		Log:        log,
	})
}
