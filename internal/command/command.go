// Package command defines what a bot command is: a name, a description and a
// Run method, plus optional providers for aliases, help text, an argument
// schema, a security policy and slash registration.
package command

import (
	"guildkit/internal/argument"
	"guildkit/internal/ledger"
	"guildkit/internal/resolve"
	"guildkit/internal/security"
	"guildkit/pkg/cmd"
)

const (
	DefaultUsage       = "%PREFIX%%CMD%"
	DefaultCategory    = "Unknown"
	DefaultDescription = "No description provided"

	// EmbedColor is the accent color of embeds the bot sends.
	EmbedColor = 0xb01e66
)

// Visibility controls whether slash responses are ephemeral.
type Visibility string

const (
	Shown  Visibility = "shown"
	Hidden Visibility = "hidden"
)

type Command interface {
	Name() string
	Description() string
	Run(c *Context, args resolve.Args) error
}

type AliasProvider interface {
	Aliases() []string
}

// HelpProvider supplies help text. Usage and examples may contain %PREFIX%
// and %CMD%.
type HelpProvider interface {
	Usage() string
	Examples() []string
	Category() string
}

type ArgumentProvider interface {
	Arguments() []*argument.Node
}

type SecurityProvider interface {
	Security() *security.Policy
}

// MiddlewareProvider supplies middleware for one command. It runs inside the
// registry-wide middleware.
type MiddlewareProvider interface {
	Middleware() []cmd.Middleware
}

type SlashProvider interface {
	SlashEnabled() bool
	SlashVisibility() Visibility
}

// Base supplies the default for every optional provider. Embed it and
// override what the command needs.
type Base struct{}

func (Base) Aliases() []string            { return nil }
func (Base) Usage() string                { return DefaultUsage }
func (Base) Examples() []string           { return nil }
func (Base) Category() string             { return DefaultCategory }
func (Base) Arguments() []*argument.Node  { return nil }
func (Base) Security() *security.Policy   { return nil }
func (Base) Middleware() []cmd.Middleware { return nil }
func (Base) SlashEnabled() bool           { return true }
func (Base) SlashVisibility() Visibility  { return Shown }

// Descriptor is the normalized metadata of a command.
type Descriptor struct {
	Name        string
	Description string
	Aliases     []string
	Usage       string
	Examples    []string
	Category    string
	Arguments   []*argument.Node
	Security    *security.Policy
	Slash       bool
	Visibility  Visibility
}

// Describe reads every provider of c and fills in defaults.
func Describe(c Command) Descriptor {
	d := Descriptor{
		Name:        c.Name(),
		Description: c.Description(),
		Usage:       DefaultUsage,
		Category:    DefaultCategory,
		Slash:       true,
		Visibility:  Shown,
	}
	if d.Description == "" {
		d.Description = DefaultDescription
	}
	if p, ok := c.(AliasProvider); ok {
		d.Aliases = p.Aliases()
	}
	if p, ok := c.(HelpProvider); ok {
		if u := p.Usage(); u != "" {
			d.Usage = u
		}
		d.Examples = p.Examples()
		if cat := p.Category(); cat != "" {
			d.Category = cat
		}
	}
	if len(d.Examples) == 0 {
		d.Examples = []string{d.Usage}
	}
	if p, ok := c.(ArgumentProvider); ok {
		d.Arguments = p.Arguments()
	}
	if p, ok := c.(SecurityProvider); ok {
		d.Security = p.Security()
	}
	if p, ok := c.(SlashProvider); ok {
		d.Slash = p.SlashEnabled()
		if v := p.SlashVisibility(); v != "" {
			d.Visibility = v
		}
	}
	return d
}

// Info converts d into the metadata stored with error records.
func (d Descriptor) Info() *ledger.CommandInfo {
	args, _ := argument.SerializeAll(d.Arguments)
	return &ledger.CommandInfo{
		Name:            d.Name,
		Description:     d.Description,
		Usage:           d.Usage,
		Category:        d.Category,
		Aliases:         d.Aliases,
		Examples:        d.Examples,
		Arguments:       args,
		SlashEnabled:    d.Slash,
		SlashVisibility: string(d.Visibility),
		Security:        d.Security,
	}
}
