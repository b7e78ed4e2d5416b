package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rushteam/cartrec/config"
	"github.com/rushteam/cartrec/server"
	"github.com/rushteam/cartrec/service"
)

func main() {
	configPath := flag.String("config", os.Getenv("CARTREC_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot := newLogger(config.Default().Log)
		boot.Fatal().Err(err).Msg("load config")
	}
	logger := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, closeStores, err := openStores(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open stores")
	}
	defer closeStores()

	filters, err := cfg.Engine.Filters()
	if err != nil {
		logger.Fatal().Err(err).Msg("build filters")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := service.New(stores,
		service.WithLogger(logger),
		service.WithMetrics(service.NewMetrics("cartrec", reg)),
		service.WithLimits(cfg.Engine.Limits()),
		service.WithFilters(filters...),
	)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(rec, reg, logger.With().Str("component", "http").Logger()).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Str("backend", cfg.Store.Backend).Str("catalog", cfg.Store.Catalog).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("listen error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}
	logger.Info().Msg("shutdown complete")
}
