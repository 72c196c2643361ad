package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/swim24-backend/internal/config"
	"github.com/DoyleJ11/swim24-backend/internal/logging"
	"github.com/DoyleJ11/swim24-backend/internal/store/pgstore"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the postgres schema",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Store != config.StorePostgres {
				return errors.New("migrate needs SWIM24_STORE=postgres")
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			pg, err := pgstore.Open(cfg.DatabaseURL, log)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, pg.Close()) }()

			if err := pg.Migrate(cmd.Context()); err != nil {
				return err
			}
			log.Info("schema migrated")
			return nil
		},
	}
}
