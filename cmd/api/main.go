package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baharkarakas/simsforum/internal/api"
	"github.com/baharkarakas/simsforum/internal/auth"
	"github.com/baharkarakas/simsforum/internal/config"
	"github.com/baharkarakas/simsforum/internal/db"
	"github.com/baharkarakas/simsforum/internal/events"
	"github.com/baharkarakas/simsforum/internal/idgen"
	"github.com/baharkarakas/simsforum/internal/logger"
	"github.com/baharkarakas/simsforum/internal/metrics"
	"github.com/baharkarakas/simsforum/internal/services"
	"github.com/baharkarakas/simsforum/internal/store"
	"github.com/baharkarakas/simsforum/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// openBackend builds the document backend selected by STORE_DRIVER. The
// returned cleanup releases whatever the backend holds open.
func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Backend, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		if err := db.RunMigrations(ctx, pool, log); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		return store.NewPostgresBackend(pool), pool.Close, nil
	case config.DriverS3:
		b, err := store.NewS3Backend(ctx, store.S3Options{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Prefix:          cfg.S3.Prefix,
			UseSSL:          cfg.S3.UseSSL,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("s3 backend: %w", err)
		}
		return b, func() {}, nil
	default:
		b, err := store.NewFileBackend(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("file backend: %w", err)
		}
		return b, func() {}, nil
	}
}

func openPublisher(cfg config.Config, log *slog.Logger) (events.Publisher, func()) {
	if cfg.RabbitMQURL == "" {
		return events.LogPublisher{Log: log}, func() {}
	}
	p, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue, log)
	if err != nil {
		log.Warn("rabbitmq unavailable, logging achievement events instead", "err", err)
		return events.LogPublisher{Log: log}, func() {}
	}
	return p, func() {
		if err := p.Close(); err != nil {
			log.Warn("close rabbitmq", "err", err)
		}
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	metrics.Init()

	backend, closeBackend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()
	st := store.New(backend, log)

	ids, err := idgen.New(cfg.SnowflakeNode)
	if err != nil {
		return err
	}
	wp := worker.NewPool(cfg.HashWorkers)
	defer wp.Stop()

	publisher, closePublisher := openPublisher(cfg, log)
	defer closePublisher()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	userSvc := services.NewUserService(st, tokens, wp, ids, log)
	achSvc := services.NewAchievementService(st, publisher, log)
	forumSvc := services.NewForumService(st, ids, achSvc, log)
	profileSvc := services.NewProfileService(st, achSvc)
	statsSvc := services.NewStatsService(st)

	if _, err := forumSvc.SeedCategories(ctx); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterDeps{
			Cfg:      cfg,
			Log:      log,
			Users:    userSvc,
			Forum:    forumSvc,
			Profiles: profileSvc,
			Stats:    statsSvc,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "store", cfg.StoreDriver, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
