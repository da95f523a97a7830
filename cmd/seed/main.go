package main

import (
	"context"
	"log/slog"
	"os"

	"somnicart/internal/config"
	"somnicart/internal/db"
	"somnicart/internal/logger"
	cartrepo "somnicart/internal/repository/cart"
	"somnicart/internal/seed"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel).With(slog.String("component", "seed"))

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		log.Error("connect db", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := seed.Apply(ctx, cartrepo.NewPostgres(pool)); err != nil {
		log.Error("seed apply", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("seed applied", slog.Int("records", len(seed.Records)))
}
