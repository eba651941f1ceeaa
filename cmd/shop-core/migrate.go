package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/vasiliy-maslov/shop-core/internal/config"
)

func newMigrateCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			s, err := openStore(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			s.close()
			log.Info().Str("driver", cfg.Store.Driver).Msg("Migrations complete")
			return nil
		},
	}
}
