package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ledger-admin-go/internal/auth"
	"ledger-admin-go/internal/common"
	"ledger-admin-go/internal/config"
	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/relay"
	"ledger-admin-go/internal/server"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger, _ := zap.NewProduction()
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()

	if err != nil {
		zap.L().Error("Server stopped with error", zap.Error(err))
		loggerCleanup()
		os.Exit(1)
	}
	zap.L().Info("Server stopped gracefully")
	loggerCleanup()
}

// run serves the HTTP API and the notification relay until ctx is done.
// Everything it opens is closed before it returns.
func run(ctx context.Context, cfg *models.Config) error {
	zap.L().Info("Starting ledger admin server")

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to configure token verification: %w", err)
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer services.Close()

	var notificationRelay *relay.Relay
	if cfg.Relay.Enabled {
		sinks, err := services.InitializeSinks(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize notification sinks: %w", err)
		}
		notificationRelay = relay.New(relay.Config{
			Store:           services.Store,
			Sinks:           sinks,
			PollingInterval: cfg.Relay.PollingInterval,
			CleanupInterval: cfg.Relay.CleanupInterval,
			BatchSize:       cfg.Relay.BatchSize,
			MaxAttempts:     cfg.Relay.MaxAttempts,
		})
	} else {
		zap.L().Info("Notification relay disabled (RELAY_ENABLED=false)")
	}

	httpServer := server.New(cfg.Server, services.Admin, verifier)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpServer.Run(gctx)
	})
	if notificationRelay != nil {
		g.Go(func() error {
			notificationRelay.Start(gctx)
			<-gctx.Done()
			notificationRelay.Stop()
			return nil
		})
	}

	zap.L().Info("Press Ctrl+C to stop")
	return g.Wait()
}
