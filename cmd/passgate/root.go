// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/taibuivan/passgate/internal/platform/config"
	"github.com/taibuivan/passgate/internal/platform/constants"
)

// envFile is the dotenv file read before the environment.
var envFile string

// NewRootCmd creates the root command. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	serve := NewServeCmd()

	cmd := &cobra.Command{
		Use:   constants.AppName,
		Short: "passgate - username/password authentication service",
		Long: `passgate registers users, logs them in with server-side sessions,
and resets forgotten passwords through emailed single-use links.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	cmd.Flags().AddFlagSet(serve.Flags())

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")

	cmd.AddCommand(serve)
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewUserCmd())

	return cmd
}

// loadConfig reads the configuration for any subcommand.
func loadConfig() (*config.Config, error) {
	return config.LoadFiles(envFile)
}

// newLogger builds the JSON logger every command writes through.
func newLogger(out io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	return logger.With(slog.String(constants.FieldApp, constants.AppName))
}
