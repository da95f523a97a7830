package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"somnicart/internal/config"
	"somnicart/internal/db"
	"somnicart/internal/logger"
	"somnicart/internal/migrate"
)

func main() {
	down := flag.Bool("down", false, "roll back all migrations")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel).With(slog.String("component", "migrate"))

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		log.Error("connect db", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if *down {
		if err := migrate.Down(ctx, pool); err != nil {
			log.Error("roll back migrations", slog.Any("error", err))
			os.Exit(1)
		}
		log.Info("migrations rolled back")
		return
	}

	if err := migrate.Apply(ctx, pool); err != nil {
		log.Error("apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("migrations applied")
}
