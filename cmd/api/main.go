package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/titanite07/TechVault/internal/app/migrate"
	"github.com/titanite07/TechVault/internal/app/seed"
	httpx "github.com/titanite07/TechVault/internal/http"
	"github.com/titanite07/TechVault/internal/repository"
	"github.com/titanite07/TechVault/internal/repository/memory"
	"github.com/titanite07/TechVault/internal/repository/mongo"
	"github.com/titanite07/TechVault/internal/repository/postgres"
	"github.com/titanite07/TechVault/internal/service/asset"
	"github.com/titanite07/TechVault/internal/service/auth"
	"github.com/titanite07/TechVault/internal/service/export"
	"github.com/titanite07/TechVault/internal/ws"
	"github.com/titanite07/TechVault/pkg/config"
	"github.com/titanite07/TechVault/pkg/logger"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn("store close failed", "error", err)
		}
	}()

	hub := ws.NewHub(ctx, log)
	authSvc := auth.New(store, log, cfg)
	assetSvc := asset.New(store, hub, log)

	if cfg.SeedUsers {
		created, err := seed.Users(ctx, authSvc, seed.DefaultAccounts, log)
		if err != nil {
			log.Error("failed to seed users", "error", err)
			os.Exit(1)
		}
		log.Info("default users ready", "created", created)
	}

	exportSvc, err := export.New(ctx, cfg, assetSvc, log)
	if err != nil {
		log.Error("failed to configure export", "error", err)
		os.Exit(1)
	}

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(httpx.Deps{
		Logger:   log,
		Config:   cfg,
		Assets:   assetSvc,
		Auth:     authSvc,
		Exporter: exportSvc,
		Hub:      hub,
		Limiter:  limiter,
		DBHealth: store.Ping,
	})
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "store", cfg.StoreDriver, "auth_enforce", cfg.AuthEnforce)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

func openStore(ctx context.Context, cfg config.APIConfig, log *slog.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		runner, err := migrate.New(pool, cfg.DatabaseURL, log)
		if err != nil {
			pool.Close()
			return nil, err
		}
		if err := runner.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		if err := runner.Ensure(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return postgres.New(pool), nil
	case config.StoreDriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		repo, err := mongo.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.StoreDriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
