// Package resolve turns raw command input into positional arguments by
// matching it against an argument schema.
//
// Two input modes exist. Text mode consumes whitespace-separated tokens from a
// prefixed chat message; structured mode consumes the typed option tree of a
// slash-command interaction. Both produce Args, a flat list where every
// matched subcommand contributes its lowercase name followed by its own
// resolved children.
package resolve

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
)

var (
	// ErrUnresolvable is returned when a user, channel or role reference does
	// not resolve to a live guild entity.
	ErrUnresolvable = errors.New("unresolvable entity reference")
	// ErrTypeMismatch is returned when a structured option value does not
	// have the type its schema node declares.
	ErrTypeMismatch = errors.New("option type mismatch")
	// ErrUnknownOption is returned when a structured option names no schema
	// node.
	ErrUnknownOption = errors.New("unknown option")
)

// Entities looks up live guild state. Implementations may hit a local cache
// or the remote API.
type Entities interface {
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	Channel(ctx context.Context, guildID, channelID string) (*discordgo.Channel, error)
	Role(ctx context.Context, guildID, roleID string) (*discordgo.Role, error)
}

// Resolver matches input against argument schemas. It holds no per-call
// state and is safe for concurrent use.
type Resolver struct {
	entities Entities
}

// New returns a Resolver that looks entities up through e. A nil e makes
// every entity reference unresolvable.
func New(e Entities) *Resolver {
	return &Resolver{entities: e}
}

// Args is the ordered result of a successful resolution.
type Args []any

func (a Args) at(i int) any {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

// String returns the string at i, or "" if absent. Subcommand names are
// strings too.
func (a Args) String(i int) string {
	s, _ := a.at(i).(string)
	return s
}

// Number returns the number at i, or 0.
func (a Args) Number(i int) float64 {
	n, _ := a.at(i).(float64)
	return n
}

// Int returns the number at i truncated to an int.
func (a Args) Int(i int) int {
	return int(a.Number(i))
}

// Bool returns the boolean at i, or false.
func (a Args) Bool(i int) bool {
	b, _ := a.at(i).(bool)
	return b
}

func (a Args) Member(i int) *discordgo.Member {
	m, _ := a.at(i).(*discordgo.Member)
	return m
}

func (a Args) Channel(i int) *discordgo.Channel {
	c, _ := a.at(i).(*discordgo.Channel)
	return c
}

func (a Args) Role(i int) *discordgo.Role {
	r, _ := a.at(i).(*discordgo.Role)
	return r
}

// Strings renders every value as text, for logs and command history.
func (a Args) Strings() []string {
	out := make([]string, 0, len(a))
	for _, v := range a {
		out = append(out, describe(v))
	}
	return out
}
