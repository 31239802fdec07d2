package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/titanite07/TechVault/internal/dashboard/server"
	apiclient "github.com/titanite07/TechVault/pkg/api/client"
	"github.com/titanite07/TechVault/pkg/config"
	"github.com/titanite07/TechVault/pkg/logger"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadDashboardConfig()
	log := logger.New("dashboard", logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	handler, err := server.New(cfg, log, apiclient.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		log.Error("failed to configure dashboard", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("dashboard starting", "addr", cfg.Addr, "api", cfg.APIBaseURL)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("dashboard stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
