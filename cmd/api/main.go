// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/afridata/datalayer/cache"
	"github.com/afridata/datalayer/dataset"
	"github.com/afridata/datalayer/internal/config"
	"github.com/afridata/datalayer/internal/http/routes"
	"github.com/afridata/datalayer/internal/metrics"
	"github.com/afridata/datalayer/repo"
)

var version = "dev"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "datalayer").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration invalid")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cache.New(cfg.CacheDir, cache.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("cache store init failed")
	}
	if cfg.SweepInterval > 0 {
		store.StartSweeper(ctx, cfg.SweepInterval)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	met := metrics.New(registry)

	locOpts := []dataset.LocatorOption{
		dataset.WithLocatorLogger(logger),
		dataset.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}),
		dataset.WithFetchHook(func(d dataset.Domain) { met.RemoteFetches.WithLabelValues(string(d)).Inc() }),
	}
	switch {
	case cfg.HasRemoteOAuth():
		locOpts = append(locOpts, dataset.WithClientCredentials(
			cfg.RemoteOAuthClientID, cfg.RemoteOAuthClientSecret, cfg.RemoteOAuthTokenURL))
	case cfg.RemoteToken != "":
		locOpts = append(locOpts, dataset.WithBearerToken(cfg.RemoteToken))
	}
	locator := dataset.NewLocator(store, dataset.LocatorConfig{
		BasePath:  cfg.DataBasePath,
		RemoteURL: cfg.RemoteBaseURL,
		FetchTTL:  cfg.FetchTTL,
	}, locOpts...)

	repository := repo.New(repo.Options{
		Locator:   locator,
		Store:     store,
		ResultTTL: cfg.ResultTTL,
		Metrics:   met,
		Logger:    logger,
	})

	s := routes.New(routes.ServerOptions{
		Repo:        repository,
		AuthToken:   cfg.AuthToken,
		MaxLimit:    cfg.MaxLimit,
		Version:     version,
		Environment: cfg.Environment,
		Logger:      logger,
		Registry:    registry,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: s.Router}
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown incomplete")
	}
}
