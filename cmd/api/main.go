package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/classforge/edugames-backend/api/routes"
	"github.com/classforge/edugames-backend/internal/admins"
	"github.com/classforge/edugames-backend/internal/games"
	"github.com/classforge/edugames-backend/internal/students"
	"github.com/classforge/edugames-backend/internal/uploads"
	"github.com/classforge/edugames-backend/pkg/auth/session"
	"github.com/classforge/edugames-backend/pkg/config"
	"github.com/classforge/edugames-backend/pkg/db"
	"github.com/classforge/edugames-backend/pkg/logger"
	"github.com/classforge/edugames-backend/pkg/metrics"
	"github.com/classforge/edugames-backend/pkg/migrate"
	"github.com/classforge/edugames-backend/pkg/redis"
	storage "github.com/classforge/edugames-backend/pkg/storage/s3"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	// A missing bucket keeps the API up; storage calls report the
	// misconfiguration per request instead of blocking boot.
	storageClient, err := storage.NewClient(context.Background(), cfg.Storage, logg)
	if err != nil {
		if !errors.Is(err, storage.ErrNotConfigured) {
			logg.Error(context.Background(), "failed to bootstrap storage", err)
			os.Exit(1)
		}
		logg.Warn(context.Background(), "object storage not configured, uploads disabled")
		storageClient = nil
	}
	var storagePinger storage.Pinger
	if storageClient != nil {
		storagePinger = storageClient
	}

	sessionManager, err := session.NewManager(redisClient, cfg.Session)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	storageMetrics := metrics.NewStorageMetrics(registry)

	authService, err := admins.NewService(admins.ServiceParams{
		Repo:          admins.NewRepository(dbClient.DB()),
		Sessions:      sessionManager,
		SessionConfig: cfg.Session,
		AppConfig:     cfg.App,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	gamesService, err := games.NewService(games.NewRepository(dbClient.DB()), storageClient, storageMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create games service", err)
		os.Exit(1)
	}

	uploadsService, err := uploads.NewService(storageClient, cfg.Storage, storageMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create uploads service", err)
		os.Exit(1)
	}

	studentsService, err := students.NewService(cfg.Import, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create students service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Storage:  storagePinger,
			Registry: registry,
			Sessions: sessionManager,
			Auth:     authService,
			Games:    gamesService,
			Uploads:  uploadsService,
			Students: studentsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
