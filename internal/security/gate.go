package security

import (
	"context"
	"errors"
	"slices"
	"strings"

	"guildkit/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrUnknownCheck is returned when a policy names a check that is not
// registered.
var ErrUnknownCheck = errors.New("unknown security check")

// PermissionSource computes effective permissions in a channel.
type PermissionSource interface {
	BotPermissions(ctx context.Context, guildID, channelID string) (int64, error)
	UserPermissions(ctx context.Context, guildID, channelID, userID string) (int64, error)
}

// SetSource loads stored allow-sets. ok is false when nothing is stored.
type SetSource interface {
	StringSet(ctx context.Context, key string) (ids []string, ok bool, err error)
}

// CheckSource resolves check names.
type CheckSource interface {
	Check(name string) (Check, bool)
}

type Gate struct {
	perms  PermissionSource
	sets   SetSource
	checks CheckSource
	msgs   config.Messages
	log    zerolog.Logger
}

// NewGate builds a gate. sets may be nil when no store is configured.
func NewGate(perms PermissionSource, sets SetSource, checks CheckSource, msgs config.Messages) *Gate {
	return &Gate{
		perms:  perms,
		sets:   sets,
		checks: checks,
		msgs:   msgs,
		log:    log.With().Str("component", "security").Logger(),
	}
}

// Evaluate reports whether req may run under policy p. Evaluation stops at
// the first failing stage: permissions, restrictions, then checks. Lookup
// errors deny.
func (g *Gate) Evaluate(ctx context.Context, p *Policy, req Request) bool {
	if p == nil {
		return true
	}
	if p.Permissions != nil && !g.permissions(ctx, p.Permissions, req) {
		return false
	}
	if len(p.Restrictions) > 0 && !g.restrictions(ctx, p.Restrictions, req) {
		return false
	}
	return g.runChecks(ctx, p.Checks, req)
}

func (g *Gate) permissions(ctx context.Context, p *Permissions, req Request) bool {
	if len(p.Bot) == 0 && len(p.User) == 0 {
		return true
	}
	// Permissions exist only inside a guild, so a direct message cannot hold them.
	if req.GuildID == "" {
		g.reply(ctx, req, g.msgs.GuildOnly)
		return false
	}
	if g.perms == nil {
		g.log.Error().Str("guild", req.GuildID).Msg("No permission source configured")
		return false
	}
	if len(p.Bot) > 0 {
		have, err := g.perms.BotPermissions(ctx, req.GuildID, req.ChannelID)
		if err != nil {
			g.log.Error().Err(err).Str("guild", req.GuildID).Str("channel", req.ChannelID).Msg("Failed to compute bot permissions")
			return false
		}
		if missing := Missing(have, p.Bot); len(missing) > 0 {
			g.reply(ctx, req, config.Format(g.msgs.BotNoPermissions, bulletList(missing)))
			return false
		}
	}
	if len(p.User) > 0 {
		have, err := g.perms.UserPermissions(ctx, req.GuildID, req.ChannelID, req.UserID)
		if err != nil {
			g.log.Error().Err(err).Str("guild", req.GuildID).Str("user", req.UserID).Msg("Failed to compute user permissions")
			return false
		}
		if missing := Missing(have, p.User); len(missing) > 0 {
			g.reply(ctx, req, config.Format(g.msgs.UserNoPermissions, bulletList(missing)))
			return false
		}
	}
	return true
}

func (g *Gate) restrictions(ctx context.Context, rs map[Scope]Restriction, req Request) bool {
	for _, scope := range scopeOrder {
		r, ok := rs[scope]
		if !ok {
			continue
		}
		var id string
		switch scope {
		case ScopeUser:
			id = req.UserID
		case ScopeChannel:
			id = req.ChannelID
		case ScopeGuild:
			id = req.GuildID
		}
		if !g.allowed(ctx, r, id) {
			g.log.Debug().Str("scope", string(scope)).Str("id", id).Msg("Restriction blocked invocation")
			return false
		}
	}
	return true
}

func (g *Gate) allowed(ctx context.Context, r Restriction, id string) bool {
	switch r.Mode {
	case Specific:
		return slices.Contains(r.IDs, id)
	case Database:
		if g.sets == nil {
			return true
		}
		ids, ok, err := g.sets.StringSet(ctx, r.Key)
		if err != nil {
			g.log.Error().Err(err).Str("key", r.Key).Msg("Failed to load restriction set")
			return false
		}
		// No stored set means no allow-list has been configured yet.
		if !ok {
			return true
		}
		return slices.Contains(ids, id)
	}
	return false
}

func (g *Gate) runChecks(ctx context.Context, names []string, req Request) bool {
	for _, name := range names {
		var (
			check Check
			ok    bool
		)
		if g.checks != nil {
			check, ok = g.checks.Check(name)
		}
		if !ok {
			g.log.Error().Str("check", name).Msg("Unknown security check")
			return false
		}
		v := check(ctx, req)
		if v.Allowed() {
			continue
		}
		if v.Embed != nil {
			g.replyEmbed(ctx, req, v)
		} else if v.Content != "" {
			g.reply(ctx, req, v.Content)
		}
		return false
	}
	return true
}

func (g *Gate) reply(ctx context.Context, req Request, content string) {
	if req.Responder == nil {
		return
	}
	if err := req.Responder.Respond(ctx, content); err != nil {
		g.log.Warn().Err(err).Str("channel", req.ChannelID).Msg("Failed to send security message")
	}
}

func (g *Gate) replyEmbed(ctx context.Context, req Request, v Verdict) {
	if req.Responder == nil {
		return
	}
	if err := req.Responder.RespondEmbed(ctx, v.Embed); err != nil {
		g.log.Warn().Err(err).Str("channel", req.ChannelID).Msg("Failed to send security embed")
	}
}

func bulletList(perms []int64) string {
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, PermissionName(p))
	}
	return "\n- " + strings.Join(names, "\n- ")
}
