package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"guildkit/internal/bot"
	"guildkit/internal/command"
	"guildkit/internal/commands/core"
	"guildkit/internal/config"
	"guildkit/internal/fault"
	"guildkit/internal/logging"
	"guildkit/internal/middleware"
	"guildkit/internal/storage"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.LogLevel, cfg.LogPretty)
	log.Info().Str("storage", cfg.StorageDriver).Msg("Starting guildkit bot")

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("Discord bot error")
		os.Exit(1)
	}
	log.Info().Msg("Discord bot exited cleanly")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := storage.Open(ctx, cfg.StorageDriver, cfg.StoragePathOrDSN())
	if err != nil {
		return err
	}
	store := storage.New(kv)
	defer store.Close()

	hub := fault.NewHub()
	registry := command.NewRegistry(middleware.WithCommandLogger(store))

	b, err := bot.New(cfg, registry, store, hub)
	if err != nil {
		return err
	}
	if err := registry.RegisterAll(core.Commands(registry, b.Ledger())...); err != nil {
		return err
	}
	return b.Run(ctx)
}
