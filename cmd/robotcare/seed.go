package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robotcare/maintenance-service/internal/app"
	"github.com/robotcare/maintenance-service/internal/config"
	"github.com/robotcare/maintenance-service/internal/observability"
)

func newSeedCommand() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo organizations and one user per role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(password) < 8 {
				return errors.New("--password must be at least 8 characters")
			}
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

			a, err := app.New(cmd.Context(), cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			accounts, err := app.SeedDemo(cmd.Context(), a.Auth, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "provider %s\ncustomer %s\n", accounts.Provider.ID, accounts.Customer.ID)
			for role, user := range accounts.Users {
				fmt.Fprintf(cmd.OutOrStdout(), "%-17s %s\n", role, user.Email)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password for every demo user")
	return cmd
}
