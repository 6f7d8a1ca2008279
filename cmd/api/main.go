package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"autism-screening/internal/cache"
	"autism-screening/internal/config"
	"autism-screening/internal/db"
	httpSrv "autism-screening/internal/http"
	"autism-screening/internal/logging"
	"autism-screening/internal/migrations"
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
		log.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

func run(env config.Env, log *slog.Logger) error {
	if err := env.Require("DATABASE_URL", "API_TOKEN", "MINIO_BUCKET"); err != nil {
		return err
	}
	screeningCfg, err := config.LoadScreening(env.ScreeningConfig)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run embedded migrations (idempotent)
	if err := migrations.Run(env.DatabaseURL); err != nil {
		return err
	}

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
	asq := asynq.NewClient(asynq.RedisClientOpt{Addr: env.RedisAddr})
	defer asq.Close()

	srv := httpSrv.NewServer(env.HTTPAddr, &httpSrv.Server{
		Store:    db.NewStore(dbase),
		Queue:    worker.NewEnqueuer(asq),
		Media:    s3c,
		Cache:    cache.NewReportCache(rdb, env.ReportCacheTTL),
		Screener: pipeline.New(screeningCfg),
		APIToken: env.APIToken,
		Log:      log,
	})

	errc := make(chan error, 1)
	go func() {
		log.Info("api listening", "addr", env.HTTPAddr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
