package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/StreamBingo/internal/adapters/storage/postgres"
	"github.com/dkeye/StreamBingo/internal/config"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Storage.Driver != "postgres" {
		log.Fatal().Str("driver", cfg.Storage.Driver).Msg("storage.driver must be postgres to migrate")
	}

	store, err := postgres.Open(cfg.Storage.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect")
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("✅ Database migration completed")
}
