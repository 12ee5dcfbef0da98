// Package bot connects the command framework to a Discord gateway session:
// it turns messages and interactions into command invocations, keeps slash
// commands registered and routes report reactions to the error ledger.
package bot

import (
	"context"
	"errors"
	"fmt"

	"guildkit/internal/command"
	"guildkit/internal/config"
	"guildkit/internal/fault"
	"guildkit/internal/ledger"
	"guildkit/internal/storage"
	"guildkit/pkg/jobmgr"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

type Bot struct {
	cfg        *config.Config
	session    *discordgo.Session
	platform   *Platform
	registry   *command.Registry
	ledger     *ledger.Ledger
	dispatcher *Dispatcher
	syncer     *Syncer
	hub        *fault.Hub
	jobs       *jobmgr.Manager
}

// New prepares a bot without connecting. store and hub may be nil.
func New(cfg *config.Config, registry *command.Registry, store *storage.Storage, hub *fault.Hub) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = intents

	if hub == nil {
		hub = fault.NewHub()
	}
	platform := NewPlatform(dg, dg.State)
	led := ledger.New(store, platform,
		ledger.WithLogChannel(cfg.LogChannelID),
		ledger.WithEmoji(cfg.InviteEmoji),
		ledger.WithMessages(cfg.Messages),
	)
	jobs := jobmgr.NewManager(func(ev jobmgr.Event) {
		log.Debug().Str("job", ev.Job).Str("state", string(ev.State)).Err(ev.Err).Msg("Job state changed")
	})

	return &Bot{
		cfg:      cfg,
		session:  dg,
		platform: platform,
		registry: registry,
		ledger:   led,
		dispatcher: NewDispatcher(platform, DispatcherOptions{
			Session:              dg,
			Registry:             registry,
			Ledger:               led,
			Store:                store,
			Messages:             cfg.Messages,
			Prefix:               cfg.Prefix,
			DisableMentionPrefix: cfg.DisableMentionPrefix,
			GuildDefaults:        cfg.GuildDefaults(),
		}),
		syncer: NewSyncer(platform, jobs),
		hub:    hub,
		jobs:   jobs,
	}, nil
}

func (b *Bot) Ledger() *ledger.Ledger { return b.ledger }
func (b *Bot) Dispatcher() *Dispatcher { return b.dispatcher }
func (b *Bot) Syncer() *Syncer { return b.syncer }

// Run connects, serves events until ctx is cancelled, then shuts down.
func (b *Bot) Run(ctx context.Context) error {
	detach := b.ledger.Attach(b.hub)
	defer detach()

	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.onReady(ctx, r)
	})
	if !b.cfg.DisableMessage {
		b.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			defer b.hub.Recover()
			b.dispatcher.HandleMessage(ctx, m)
		})
	}
	if !b.cfg.DisableSlash {
		b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			defer b.hub.Recover()
			b.dispatcher.HandleInteraction(ctx, i)
		})
	}
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		defer b.hub.Recover()
		b.dispatcher.HandleReaction(ctx, r)
	})
	b.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageDelete) {
		defer b.hub.Recover()
		b.dispatcher.HandleMessageDelete(ctx, m)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received, cleaning up")
	b.jobs.Shutdown()
	b.dispatcher.Wait()
	b.hub.Wait()
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("failed to close Discord session: %w", err)
	}
	return nil
}

func (b *Bot) onReady(ctx context.Context, r *discordgo.Ready) {
	name := ""
	if r.User != nil {
		name = r.User.Username
	}
	log.Info().Str("user", name).Int("guilds", len(r.Guilds)).Msg("Discord bot is running")

	if b.cfg.DisableSlash || !b.cfg.SlashSync {
		log.Info().Msg("Slash command sync skipped")
		return
	}
	b.hub.Go(func() error {
		_, err := b.syncer.Sync(ctx, b.cfg.SlashGuildID, b.registry.Slash())
		if errors.Is(err, jobmgr.ErrRunning) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}
