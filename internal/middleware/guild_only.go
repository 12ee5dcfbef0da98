package middleware

import (
	"context"

	"guildkit/internal/command"
	"guildkit/pkg/cmd"
)

const guildOnlyMessage = "You must be in a guild to use this command."

// WithGuildOnly refuses invocations from direct messages.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if v, ok := inv.Data.(*command.Context); ok && v.GuildID == "" {
				return v.Respond(guildOnlyMessage)
			}
			return c.Run(ctx, inv)
		})
	}
}
