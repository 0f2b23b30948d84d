package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/giftlink/internal/config"
	"github.com/fairyhunter13/giftlink/pkg/database"
)

func main() {
	cmd := flag.String("cmd", "up", "goose command: up|up-by-one|up-to|down|down-to|redo|reset|status|version")
	pretty := flag.Bool("pretty", true, "human-readable log output")
	flag.Parse()

	if *pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbCfg, err := config.LoadDB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load database configuration")
	}

	pool, err := database.NewPool(ctx, dbCfg.PoolConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	// Extra positional args go to goose, e.g. the target version for up-to.
	if err := database.RunMigrations(ctx, pool, *cmd, flag.Args()...); err != nil {
		log.Error().Err(err).Str("cmd", *cmd).Msg("migration failed")
		pool.Close()
		os.Exit(1)
	}
	log.Info().Str("cmd", *cmd).Msg("migration finished")
}
