package core

import (
	"fmt"
	"strings"

	"guildkit/internal/argument"
	"guildkit/internal/command"
	"guildkit/internal/resolve"
	"guildkit/internal/security"
	"guildkit/pkg/cmd"
)

// Permission manages the trusted-user list.
type Permission struct {
	command.Base
}

func (p *Permission) Name() string        { return "permission" }
func (p *Permission) Description() string { return "Manage trusted users" }
func (p *Permission) Category() string    { return "Settings" }
func (p *Permission) Usage() string       { return "%PREFIX%%CMD% <allow|revoke|list> [user]" }

func (p *Permission) Examples() []string {
	return []string{"%PREFIX%%CMD% allow @someone", "%PREFIX%%CMD% list"}
}

func (p *Permission) Security() *security.Policy   { return adminOnly() }
func (p *Permission) Middleware() []cmd.Middleware { return guildScoped() }

func (p *Permission) Arguments() []*argument.Node {
	return []*argument.Node{
		argument.Sub("allow", "Trust a user",
			argument.Scalar(argument.User, "user", "The user to trust", true)),
		argument.Sub("revoke", "Stop trusting a user",
			argument.Scalar(argument.User, "user", "The user to revoke", true)),
		argument.Sub("list", "List trusted users"),
	}
}

func (p *Permission) Run(c *command.Context, args resolve.Args) error {
	if !c.Storage.Enabled() {
		return c.Respond(needsDatabase)
	}
	ctx := c.Context()

	switch args.String(0) {
	case "allow":
		m := args.Member(1)
		if err := c.Storage.AddToSet(ctx, TrustedKey, m.User.ID); err != nil {
			return fmt.Errorf("failed to trust user: %w", err)
		}
		c.Logger.Info().Str("target", m.User.ID).Msg("User trusted")
		return c.Respond(fmt.Sprintf("<@%s> is now trusted.", m.User.ID))

	case "revoke":
		m := args.Member(1)
		ok, err := c.Storage.RemoveFromSet(ctx, TrustedKey, m.User.ID)
		if err != nil {
			return fmt.Errorf("failed to revoke user: %w", err)
		}
		if !ok {
			return c.Respond(fmt.Sprintf("<@%s> was not trusted.", m.User.ID))
		}
		c.Logger.Info().Str("target", m.User.ID).Msg("User revoked")
		return c.Respond(fmt.Sprintf("<@%s> is no longer trusted.", m.User.ID))

	default:
		ids, _, err := c.Storage.StringSet(ctx, TrustedKey)
		if err != nil {
			return fmt.Errorf("failed to load trusted users: %w", err)
		}
		if len(ids) == 0 {
			return c.Respond("No trusted users.")
		}
		mentions := make([]string, len(ids))
		for i, id := range ids {
			mentions[i] = "<@" + id + ">"
		}
		return c.Respond("Trusted users: " + strings.Join(mentions, ", "))
	}
}
