// Package core holds the commands every guildkit bot ships with: latency
// checks, help, the trusted-user list and error ledger inspection.
package core

import (
	"guildkit/internal/command"
	"guildkit/internal/ledger"
	"guildkit/internal/middleware"
	"guildkit/internal/security"
	"guildkit/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

// TrustedKey is the stored allow-list managed by the permission command.
// Commands restrict themselves to it with security.Stored(TrustedKey).
const TrustedKey = "trusted-users"

const needsDatabase = "This command needs a database."

// Commands returns the core command set. reg is what help lists; led is what
// the errors command inspects.
func Commands(reg *command.Registry, led *ledger.Ledger) []command.Command {
	return []command.Command{
		&Ping{},
		NewHelp(reg),
		&Permission{},
		&History{},
		NewErrors(led),
	}
}

func adminOnly() *security.Policy {
	return &security.Policy{
		Permissions: &security.Permissions{User: []int64{discordgo.PermissionAdministrator}},
	}
}

// guildScoped refuses direct messages before the command runs.
func guildScoped() []cmd.Middleware {
	return []cmd.Middleware{middleware.WithGuildOnly()}
}
