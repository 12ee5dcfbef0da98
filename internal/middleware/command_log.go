// Package middleware holds cmd.Middleware implementations shared by all
// commands.
package middleware

import (
	"context"
	"time"

	"guildkit/internal/command"
	"guildkit/internal/resolve"
	"guildkit/internal/storage"
	"guildkit/pkg/cmd"

	"github.com/rs/zerolog/log"
)

// WithCommandLogger logs every invocation and appends it to the guild's
// command history in store.
func WithCommandLogger(store *storage.Storage) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			v, ok := inv.Data.(*command.Context)
			if !ok {
				return err
			}
			log.Info().
				Str("command", c.Name()).
				Str("invoked", v.Invoked).
				Str("guild_id", v.GuildID).
				Str("channel_id", v.ChannelID).
				Str("user_id", v.AuthorID()).
				Bool("slash", v.IsSlash()).
				Dur("took", time.Since(start)).
				Bool("failed", err != nil).
				Msg("Command executed")

			if v.GuildID == "" || !store.Enabled() {
				return err
			}
			rec := storage.CommandHistoryRecord{
				ChannelID:   v.ChannelID,
				ChannelName: v.ChannelName,
				GuildName:   v.GuildName,
				UserID:      v.AuthorID(),
				Command:     c.Name(),
				Args:        resolve.Args(inv.Args).Strings(),
				Slash:       v.IsSlash(),
				Datetime:    start.UTC(),
			}
			if v.Author != nil {
				rec.Username = v.Author.Username
			}
			if herr := store.AppendCommandHistory(ctx, v.GuildID, rec); herr != nil {
				log.Warn().Err(herr).Str("command", c.Name()).Msg("Failed to log command")
			}
			return err
		})
	}
}
