package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sqlscribe/sqlscribe/internal/api"
	"github.com/sqlscribe/sqlscribe/internal/api/uistatic"
	"github.com/sqlscribe/sqlscribe/internal/config"
	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
	"github.com/sqlscribe/sqlscribe/internal/observability"
	"github.com/sqlscribe/sqlscribe/internal/schema"
	"github.com/sqlscribe/sqlscribe/internal/sqlcache"
	"github.com/sqlscribe/sqlscribe/internal/sqlcache/backend"
)

func main() {
	cfg, err := config.LoadFromEnv("sqlscribe-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	schemaContext, err := schema.Load(cfg.Schema.File)
	if err != nil {
		logger.Error("failed to load schema context", slog.Any("error", err))
		os.Exit(1)
	}

	store, closeStore, err := backend.Open(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open cache backend", slog.String("backend", cfg.Cache.Backend), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = closeStore() }()
	cache := sqlcache.New(store, logger)

	generator, err := nl2sql.New(cfg.AI)
	switch {
	case errors.Is(err, nl2sql.ErrMissingAPIKey):
		logger.Warn("no model API key configured; cache misses will fail", slog.String("provider", cfg.AI.Provider))
		generator = nil
	case err != nil:
		logger.Error("failed to initialize sql generator", slog.Any("error", err))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger:            logger,
		Cache:             cache,
		Generator:         generator,
		SchemaContext:     schemaContext,
		Readiness:         api.CheckCache(cache),
		DependencyTimeout: 2 * time.Second,
	}
	if cfg.UI.StaticDir != "" {
		ui, err := uistatic.Handler(cfg.UI.StaticDir)
		if err != nil {
			logger.Warn("ui disabled", slog.Any("error", err))
		} else {
			deps.UI = ui
		}
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.Bool("api_key_configured", generator != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
