// Package security evaluates a command's security policy against one
// invocation: required permissions first, then identity restrictions, then
// named custom checks.
package security

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Scope selects which identity of the invocation a restriction applies to.
type Scope string

const (
	ScopeUser    Scope = "user"
	ScopeChannel Scope = "channel"
	ScopeGuild   Scope = "guild"
)

// scopeOrder is the evaluation order of restrictions.
var scopeOrder = []Scope{ScopeUser, ScopeChannel, ScopeGuild}

// Mode selects where a restriction's allow-set comes from.
type Mode string

const (
	// Specific allow-sets are literal IDs.
	Specific Mode = "specific"
	// Database allow-sets are loaded from the store by key.
	Database Mode = "database"
)

type Restriction struct {
	Mode Mode     `json:"mode"`
	IDs  []string `json:"ids,omitempty"`
	Key  string   `json:"key,omitempty"`
}

// Only returns a restriction to the given literal IDs.
func Only(ids ...string) Restriction {
	return Restriction{Mode: Specific, IDs: ids}
}

// Stored returns a restriction to the ID list stored under key.
func Stored(key string) Restriction {
	return Restriction{Mode: Database, Key: key}
}

func (r Restriction) validate() error {
	switch r.Mode {
	case Specific:
		if len(r.IDs) == 0 {
			return fmt.Errorf("specific restriction without ids")
		}
	case Database:
		if r.Key == "" {
			return fmt.Errorf("database restriction without key")
		}
	default:
		return fmt.Errorf("unknown restriction mode %q", r.Mode)
	}
	return nil
}

// Permissions lists discordgo permission bits the bot and the invoking user
// must both hold in the target channel.
type Permissions struct {
	Bot  []int64 `json:"bot,omitempty"`
	User []int64 `json:"user,omitempty"`
}

type Policy struct {
	Permissions  *Permissions          `json:"permissions,omitempty"`
	Restrictions map[Scope]Restriction `json:"restrictions,omitempty"`
	Checks       []string              `json:"checks,omitempty"`
}

// Validate checks restriction shapes and that every named check is known.
func (p *Policy) Validate(known func(name string) bool) error {
	if p == nil {
		return nil
	}
	for scope, r := range p.Restrictions {
		switch scope {
		case ScopeUser, ScopeChannel, ScopeGuild:
		default:
			return fmt.Errorf("unknown restriction scope %q", scope)
		}
		if err := r.validate(); err != nil {
			return fmt.Errorf("%s restriction: %w", scope, err)
		}
	}
	for _, name := range p.Checks {
		if known == nil || !known(name) {
			return fmt.Errorf("%w: %q", ErrUnknownCheck, name)
		}
	}
	return nil
}

// Responder sends a reply to whoever triggered the invocation.
type Responder interface {
	Respond(ctx context.Context, content string) error
	RespondEmbed(ctx context.Context, embed *discordgo.MessageEmbed) error
}

// Request is the part of an invocation the gate looks at.
type Request struct {
	GuildID   string
	ChannelID string
	UserID    string
	Args      []any
	// Invocation is the caller's own context, passed through to checks.
	Invocation any
	Responder  Responder
}

type verdictKind int

const (
	allow verdictKind = iota
	deny
	denyWithMessage
)

// Verdict is the result of a custom check.
type Verdict struct {
	kind    verdictKind
	Content string
	Embed   *discordgo.MessageEmbed
}

func Allow() Verdict { return Verdict{kind: allow} }

// Deny blocks silently.
func Deny() Verdict { return Verdict{kind: deny} }

// DenyWithMessage blocks and tells the caller why.
func DenyWithMessage(content string) Verdict {
	return Verdict{kind: denyWithMessage, Content: content}
}

// DenyWithEmbed blocks and replies with an embed.
func DenyWithEmbed(embed *discordgo.MessageEmbed) Verdict {
	return Verdict{kind: denyWithMessage, Embed: embed}
}

func (v Verdict) Allowed() bool { return v.kind == allow }

// Check is a named custom predicate.
type Check func(ctx context.Context, req Request) Verdict
