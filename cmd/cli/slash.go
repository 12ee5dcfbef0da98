package main

import (
	"fmt"
	"io"
	"strings"

	"guildkit/internal/bot"
	"guildkit/internal/command"
	"guildkit/internal/commands/core"
	"guildkit/internal/ledger"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
)

func newSlashCommand(opts *rootOptions) *cobra.Command {
	var guildID string

	cmd := &cobra.Command{
		Use:   "slash",
		Short: "Manage registered slash commands over REST",
	}
	cmd.PersistentFlags().StringVar(&guildID, "guild", "", "guild scope (defaults to SLASH_GUILD_ID, empty means global)")

	syncer := func(cmd *cobra.Command) (*bot.Syncer, error) {
		if !cmd.Flags().Changed("guild") {
			guildID = opts.cfg.SlashGuildID
		}
		dg, err := discordgo.New("Bot " + opts.cfg.DiscordToken)
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		return bot.NewSyncer(bot.NewPlatform(dg, nil), nil), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Create, update and delete slash commands to match the built-in set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := syncer(cmd)
			if err != nil {
				return err
			}
			reg := command.NewRegistry()
			if err := reg.RegisterAll(core.Commands(reg, ledger.New(opts.store, nil))...); err != nil {
				return err
			}
			res, err := s.Sync(cmd.Context(), guildID, reg.Slash())
			perr := opts.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				for _, row := range []struct {
					label string
					names []string
				}{
					{"created", res.Created},
					{"updated", res.Updated},
					{"deleted", res.Deleted},
					{"unchanged", res.Unchanged},
				} {
					fmt.Fprintf(w, "%-10s %d %s\n", row.label, len(row.names), strings.Join(row.names, " "))
				}
			})
			if err != nil {
				return err
			}
			return perr
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unregister",
		Short: "Delete every slash command in the scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := syncer(cmd)
			if err != nil {
				return err
			}
			n, err := s.Unregister(cmd.Context(), guildID)
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d commands\n", n)
			return err
		},
	})

	return cmd
}
