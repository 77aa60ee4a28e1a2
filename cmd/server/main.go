package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcoot/duelgame/internal/api"
	"github.com/mcoot/duelgame/internal/config"
	"github.com/mcoot/duelgame/internal/factory"
	"github.com/mcoot/duelgame/internal/fanout"
	"github.com/mcoot/duelgame/internal/services/auth"
	redisstorage "github.com/mcoot/duelgame/internal/storage/redis"
)

func main() {
	configPath := flag.String("config", os.Getenv("DUEL_CONFIG"), "Path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// No logger config yet; fall back to JSON on stderr
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	app, err := factory.New(factoryConfig(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("error releasing backends", slog.String("error", err.Error()))
		}
	}()

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// In multi-instance mode events arrive through Redis
	if app.Bus != nil {
		go func() {
			if err := app.Bus.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("redisbus stopped", slog.String("error", err.Error()))
				cancel()
			}
		}()
	}

	go runCleanup(ctx, app, cfg.Server.CleanupInterval, logger)

	apiRouter := api.NewRouter(api.RouterConfig{
		Logger: logger,
		App:    app,
	})

	server := api.NewServer(apiRouter, cfg.Server, logger)
	// Ending the streams lets Shutdown drain instead of waiting out its timeout
	server.OnShutdown(app.Broker.Close)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type),
		slog.String("fanout", cfg.Fanout.Type))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

func factoryConfig(cfg config.Config, logger *slog.Logger) factory.Config {
	redisCfg := redisstorage.Config{
		URL:          cfg.Redis.URL,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		PlayerTTL:    cfg.Redis.PlayerTTL,
		SessionTTL:   cfg.Redis.SessionTTL,
	}
	return factory.Config{
		Logger:      logger,
		StorageType: cfg.Storage.Type,
		FanoutType:  cfg.Fanout.Type,
		FanoutConfig: fanout.Config{
			SubscriberBuffer: cfg.Fanout.SubscriberBuffer,
			HubBuffer:        cfg.Fanout.HubBuffer,
		},
		RedisConfig: &redisCfg,
		AuthConfig: auth.Config{
			Secret:   cfg.Auth.Secret,
			Issuer:   cfg.Auth.Issuer,
			TokenTTL: cfg.Auth.TokenTTL,
		},
	}
}

// runCleanup periodically drops idle hubs and expired revocations
func runCleanup(ctx context.Context, app *factory.App, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := app.Broker.CleanupEmptyHubs()
			app.AuthService.CleanRevokedTokens(ctx)
			logger.Debug("periodic cleanup", slog.Int("hubs_removed", removed))
		}
	}
}
