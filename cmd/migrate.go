package cmd

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanpawarit/laia-quote-agent/agent/record"
	configx "github.com/tanpawarit/laia-quote-agent/pkg/config"
	"github.com/tanpawarit/laia-quote-agent/pkg/postgres"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the quote, payment and dialog tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			pgCfg, err := configx.New[postgres.Config]("POSTGRES")
			if err != nil {
				return err
			}
			if !pgCfg.Enabled() {
				return errors.New("POSTGRES_DSN is required")
			}
			db, err := postgres.Open(*pgCfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Ping(cmd.Context(), db); err != nil {
				return err
			}
			if err := record.CreateTables(cmd.Context(), db); err != nil {
				return err
			}
			log.Info().Msg("tables are up to date")
			return nil
		},
	}
}
