package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"somnicart/internal/config"
	"somnicart/internal/db"
	"somnicart/internal/importer"
	"somnicart/internal/logger"
	cartrepo "somnicart/internal/repository/cart"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to a CSV export of the legacy carts table")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.New(os.Stderr, cfg.LogLevel).With(slog.String("component", "importer"))
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		log.Error("connect db", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.Error("open file", slog.Any("error", err))
		os.Exit(1)
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, cartrepo.NewPostgres(pool))

	start := time.Now()
	stats, err := imp.Run(ctx)
	if err != nil {
		log.Error("import failed", slog.Int("imported", stats.Imported), slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Printf("Imported %d carts (%d invalid lines dropped) in %s\n",
		stats.Imported, stats.DroppedLines, time.Since(start).Truncate(time.Millisecond))
}
