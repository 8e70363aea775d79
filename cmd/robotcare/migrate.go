package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robotcare/maintenance-service/internal/config"
	"github.com/robotcare/maintenance-service/internal/observability"
	"github.com/robotcare/maintenance-service/internal/persistence"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPostgres(cmd.Context(), func(ctx context.Context, pg *persistence.Postgres, logger *zap.Logger) error {
				return persistence.RollbackMigrations(ctx, pg.PoolHandle(), steps, logger)
			})
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withPostgres(cmd.Context(), func(ctx context.Context, pg *persistence.Postgres, logger *zap.Logger) error {
					return persistence.RunMigrations(ctx, pg.PoolHandle(), logger)
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show the applied schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withPostgres(cmd.Context(), func(ctx context.Context, pg *persistence.Postgres, _ *zap.Logger) error {
					version, err := persistence.MigrationVersion(ctx, pg.PoolHandle())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
					return nil
				})
			},
		},
	)
	return cmd
}

func withPostgres(ctx context.Context, fn func(context.Context, *persistence.Postgres, *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required")
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if ctx == nil {
		ctx = context.Background()
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	return fn(ctx, pg, logger)
}
