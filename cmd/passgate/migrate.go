// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/taibuivan/passgate/internal/platform/migration"
)

var migrateDown bool

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending migrations to the PostgreSQL database, or roll every one back with --down.`,
		RunE:  runMigrate,
	}
	cmd.Flags().BoolVar(&migrateDown, "down", false, "roll back all migrations")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	log := newLogger(cmd.ErrOrStderr(), cfg)

	if migrateDown {
		cmd.Println("Rolling back migrations...")
		if err := migration.RunDown(cfg.DatabaseURL, log); err != nil {
			return err
		}
		cmd.Println("Migrations rolled back")
		return nil
	}

	cmd.Println("Running migrations...")
	if err := migration.RunUp(cfg.DatabaseURL, log); err != nil {
		return err
	}
	cmd.Println("Migrations completed successfully")
	return nil
}
