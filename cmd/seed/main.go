package main

import (
	"context"
	"time"

	"farmerconnect/internal/config"
	"farmerconnect/internal/repository"
	"farmerconnect/internal/seed"
	"farmerconnect/utils"
)

// seed migrates the configured database and loads the demo dataset into it
func main() {
	cfg := config.Load()
	utils.SetLevel(cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		utils.Fatal("seed: DATABASE_URL is required", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := repository.Migrate(cfg.DatabaseURL); err != nil {
		utils.Fatal("seed: migrate failed", map[string]any{"error": err.Error()})
	}
	pool, err := repository.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		utils.Fatal("seed: connect failed", map[string]any{"error": err.Error()})
	}
	db := repository.NewPostgresRepo(pool)
	defer db.Close()

	res, err := seed.Apply(ctx, db, time.Now())
	if err != nil {
		utils.Fatal("seed: failed", map[string]any{"error": err.Error()})
	}
	utils.Info("seed: done", map[string]any{"users": res.Users, "products": res.Products})
}
