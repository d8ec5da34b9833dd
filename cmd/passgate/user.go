// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	pgstore "github.com/taibuivan/passgate/internal/platform/postgres"
	"github.com/taibuivan/passgate/internal/platform/sec"
	"github.com/taibuivan/passgate/internal/platform/validate"
	"github.com/taibuivan/passgate/internal/users/account"
	"github.com/taibuivan/passgate/internal/users/auth"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// NewUserCmd creates the user subcommand tree.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	cmd.AddCommand(newPromoteCmd())
	cmd.AddCommand(newCreateAdminCmd())
	cmd.AddCommand(newSetPasswordCmd())
	return cmd
}

func newPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <email>",
		Short: "Grant the admin role to an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserService(cmd, func(ctx context.Context, service *auth.Service) error {
				if err := service.PromoteUser(ctx, args[0]); err != nil {
					return err
				}
				cmd.Printf("%s is now an admin\n", args[0])
				return nil
			})
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, prompting for its password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			validator := &validate.Validator{}
			validator.EmailAddress(account.FieldEmail, email).
				Handle(account.FieldName, name).
				MaxLen(account.FieldName, name, validate.MaxNameLength)
			if err := validator.Err(); err != nil {
				return err
			}

			password, err := promptNewPassword(cmd.ErrOrStderr(), int(os.Stdin.Fd()))
			if err != nil {
				return err
			}

			return withUserService(cmd, func(ctx context.Context, service *auth.Service) error {
				user, err := service.CreateUser(ctx, auth.NewUser{Name: name, Email: email, Password: password}, sec.RoleAdmin)
				if err != nil {
					return err
				}
				cmd.Printf("created admin %s (%s)\n", user.Email, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address of the new admin")
	cmd.Flags().StringVar(&name, "name", "", "display name of the new admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-password <email>",
		Short: "Replace a user's password, prompting for the new one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptNewPassword(cmd.ErrOrStderr(), int(os.Stdin.Fd()))
			if err != nil {
				return err
			}

			return withUserService(cmd, func(ctx context.Context, service *auth.Service) error {
				if err := service.SetPassword(ctx, args[0], password); err != nil {
					return err
				}
				cmd.Printf("password of %s updated\n", args[0])
				return nil
			})
		},
	}
}

// promptNewPassword reads a password twice without echo and checks both entries.
func promptNewPassword(out io.Writer, fd int) (string, error) {
	fmt.Fprint(out, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(out, "Repeat password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	validator := &validate.Validator{}
	validator.Handle(account.FieldPassword, string(first)).
		MaxLen(account.FieldPassword, string(first), validate.MaxPasswordLength).
		Equal(account.FieldPassword2, string(second), string(first))
	if err := validator.Err(); err != nil {
		return "", err
	}
	return string(first), nil
}

// withUserService runs fn against the PostgreSQL user store.
func withUserService(cmd *cobra.Command, fn func(context.Context, *auth.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), startupTimeout)
	defer cancel()

	log := newLogger(cmd.ErrOrStderr(), cfg)
	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, pgstore.PoolOptions{MaxConns: 2}, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	service := newAuthService(cfg, account.NewPostgresStore(pool), nil, nil, nil)
	return fn(ctx, service)
}
