package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robotcare/maintenance-service/internal/app"
	"github.com/robotcare/maintenance-service/internal/config"
	"github.com/robotcare/maintenance-service/internal/observability"
)

func newServeCommand() *cobra.Command {
	var seedPassword string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), seedPassword)
		},
	}
	cmd.Flags().StringVar(&seedPassword, "seed-demo", "", "Create demo organizations and users with this password on startup")
	return cmd
}

func runServe(ctx context.Context, seedPassword string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Error("failed to build app", zap.Error(err))
		return err
	}
	defer a.Close()

	if seedPassword != "" {
		accounts, err := app.SeedDemo(ctx, a.Auth, seedPassword)
		if err != nil {
			logger.Error("failed to seed demo accounts", zap.Error(err))
			return err
		}
		for role, user := range accounts.Users {
			logger.Info("demo account", zap.String("role", string(role)), zap.String("email", user.Email))
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		errCh <- a.Fiber.Listen(cfg.App.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("fiber listen", zap.Error(err))
			return err
		}
	}

	return a.Fiber.Shutdown()
}
