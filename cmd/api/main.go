package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"somnicart/internal/config"
	"somnicart/internal/db"
	"somnicart/internal/events"
	"somnicart/internal/httpserver"
	"somnicart/internal/logger"
	"somnicart/internal/metrics"
	"somnicart/internal/migrate"
	cartrepo "somnicart/internal/repository/cart"
	cartsvc "somnicart/internal/service/cart"
	checkoutsvc "somnicart/internal/service/checkout"
	productsvc "somnicart/internal/service/product"
	"somnicart/internal/storefront"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel).With(slog.String("component", "api"))

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	if err := migrate.Apply(ctx, dbpool); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Info("publishing cart events", slog.Any("brokers", cfg.KafkaBrokers), slog.String("topic", cfg.KafkaTopic))
	}
	defer publisher.Close()

	if cfg.Storefront.Domain == "" || cfg.Storefront.AccessToken == "" {
		log.Warn("storefront domain or access token not set; checkout and catalog calls will fail")
	}
	sf := storefront.New(storefront.Config{
		Domain:      cfg.Storefront.Domain,
		AccessToken: cfg.Storefront.AccessToken,
		APIVersion:  cfg.Storefront.APIVersion,
		Timeout:     cfg.Storefront.Timeout,
	}, nil, collector)

	cartRepo := cartrepo.NewPostgres(dbpool)
	cartService := cartsvc.New(cartRepo, publisher, collector, log)
	checkoutService := checkoutsvc.New(sf, collector, log)
	productService := productsvc.New(sf)

	srv, err := httpserver.New(cfg.HTTPAddr, log, httpserver.Deps{
		CartSvc:        cartService,
		CheckoutSvc:    checkoutService,
		ProductSvc:     productService,
		Metrics:        collector,
		Gatherer:       reg,
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: cfg.TrustedProxies,
		CheckoutRate: httpserver.RateLimiterConfig{
			PerMinute: cfg.CheckoutRatePerMinute,
			Burst:     cfg.CheckoutBurst,
		},
	})
	if err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-stopCh:
		log.Info("shutting down", slog.String("signal", sig.String()))
	case runErr = <-serverErr:
		log.Error("server error", slog.Any("error", runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", slog.Any("error", err))
	} else {
		log.Info("server stopped")
	}
	return runErr
}
