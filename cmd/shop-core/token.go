package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vasiliy-maslov/shop-core/internal/config"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
	handler "github.com/vasiliy-maslov/shop-core/internal/handler/http"
)

// newTokenCmd signs a bearer token for local testing of the API.
func newTokenCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <username>",
		Short: "Sign a bearer token for a username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			r := customer.Role(role)
			if !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}

			token, err := handler.IssueToken([]byte(cfg.Auth.JWTSecret), args[0], r, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", customer.RoleUser.String(), "USER or ADMIN")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
