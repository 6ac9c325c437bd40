package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/staffdesk/staffdesk/pkg/config"
	"github.com/staffdesk/staffdesk/pkg/database"
	"github.com/staffdesk/staffdesk/pkg/logger"
)

func main() {
	cfg, err := config.LoadWithValidation("staffdesk")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("migrate", cfg.Server.Environment)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	applied, err := db.Migrate(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	if len(applied) == 0 {
		log.Info().Msg("schema is up to date")
		return
	}
	for _, version := range applied {
		log.Info().Str("version", version).Msg("applied migration")
	}
}
