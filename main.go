package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"live-auction/internal/config"
	"live-auction/internal/repository"
	"live-auction/internal/server"
	"live-auction/utils"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	utils.SetLevel(cfg.LogLevel)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openStore(ctx, cfg)
	if err != nil {
		utils.Fatal("failed to open store", map[string]any{"backend": cfg.StoreBackend, "error": err.Error()})
	}
	defer repo.Close()

	router := server.SetupRouter(server.NewServices(repo, cfg.AuctionDuration))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.Info("starting auction server", map[string]any{
			"addr":    cfg.Addr(),
			"backend": cfg.StoreBackend,
			"env":     cfg.Env,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	utils.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("graceful shutdown failed", map[string]any{"error": err.Error()})
	}
}

// openStore returns the configured backend. The redis backend also starts the
// reaper that clears presence left behind by dead connections.
func openStore(ctx context.Context, cfg *config.Config) (repository.RealtimeDB, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		repo, err := repository.NewRedisRepo(ctx, cfg.RedisURL, repository.RedisOptions{LeaseTTL: cfg.PresenceLeaseTTL})
		if err != nil {
			return nil, err
		}
		go repo.RunReaper(ctx, cfg.PresenceReapInterval)
		return repo, nil
	case config.BackendMemory:
		return repository.NewMemoryRepo(), nil
	default:
		return nil, errors.New("unknown store backend " + cfg.StoreBackend)
	}
}
