package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmerconnect/internal/config"
	"farmerconnect/internal/events"
	"farmerconnect/internal/repository"
	"farmerconnect/internal/seed"
	"farmerconnect/internal/server"
	"farmerconnect/utils"
)

func main() {
	cfg := config.Load()
	utils.SetLevel(cfg.LogLevel)

	ctx := context.Background()

	db, err := openStorage(ctx, cfg)
	if err != nil {
		utils.Fatal("storage: could not open", map[string]any{"error": err.Error()})
	}
	defer db.Close()

	publisher := openPublisher(ctx, cfg)
	defer publisher.Close()

	if cfg.SeedDemoData {
		if _, err := seed.Apply(ctx, db, time.Now()); err != nil {
			utils.Fatal("seed: could not apply demo data", map[string]any{"error": err.Error()})
		}
	}

	services, err := server.NewServices(ctx, db, publisher, cfg)
	if err != nil {
		utils.Fatal("services: could not start", map[string]any{"error": err.Error()})
	}
	router := server.SetupRouter(services, server.Options{
		UploadDir:      cfg.UploadDir,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.WithCORS(router, cfg.CORSOrigins),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		utils.Info("server: listening", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Fatal("server: listen failed", map[string]any{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Info("server: shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("server: forced shutdown", map[string]any{"error": err.Error()})
	}
}

// openStorage returns Postgres when DATABASE_URL is set, otherwise the in-memory store
func openStorage(ctx context.Context, cfg config.Config) (repository.MarketDB, error) {
	if cfg.DatabaseURL == "" {
		utils.Warn("storage: DATABASE_URL not set, data is kept in memory", nil)
		return repository.NewMemoryRepo(), nil
	}
	if err := repository.Migrate(cfg.DatabaseURL); err != nil {
		return nil, err
	}
	pool, err := repository.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	utils.Info("storage: connected to postgres", nil)
	return repository.NewPostgresRepo(pool), nil
}

// openPublisher falls back to logging events when Redis is absent or unreachable
func openPublisher(ctx context.Context, cfg config.Config) events.Publisher {
	if cfg.RedisURL == "" {
		return events.LogPublisher{}
	}
	pub, err := events.NewRedisPublisher(ctx, cfg.RedisURL)
	if err != nil {
		utils.Warn("events: redis unavailable, logging events instead", map[string]any{"error": err.Error()})
		return events.LogPublisher{}
	}
	return pub
}
