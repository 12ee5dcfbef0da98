package resolve

import (
	"fmt"
	"strings"

	"guildkit/internal/argument"
	"guildkit/internal/config"

	"github.com/bwmarrin/discordgo"
)

// Reason records why text resolution stopped. It is informational only: the
// caller always renders a single help message.
type Reason string

const (
	MissingRequiredArgument     Reason = "missing required argument"
	UnresolvableEntityReference Reason = "unresolvable entity reference"
	TypeCoercionFailure         Reason = "type coercion failure"
)

// Rejection lists what is still expected at the point text resolution failed.
type Rejection struct {
	// Subcommands holds the unmatched group nodes the caller may choose from.
	Subcommands []*argument.Node
	// Options holds the required scalar nodes still unmet. With FirstOnly set
	// it is truncated to the first one.
	Options   []*argument.Node
	FirstOnly bool
	Reason    Reason
	Token     string
}

func reject(remaining []*argument.Node, firstOnly bool, reason Reason, token string) *Rejection {
	rej := &Rejection{FirstOnly: firstOnly, Reason: reason, Token: token}
	for _, n := range remaining {
		switch {
		case n.Kind.IsGroup():
			rej.Subcommands = append(rej.Subcommands, n)
		case n.Required:
			rej.Options = append(rej.Options, n)
		}
	}
	if firstOnly && len(rej.Options) > 1 {
		rej.Options = rej.Options[:1]
	}
	return rej
}

func (r *Rejection) Error() string {
	if r.Token != "" {
		return fmt.Sprintf("%s at %q", r.Reason, r.Token)
	}
	return string(r.Reason)
}

// Help is the rendered form of a Rejection.
type Help struct {
	Title                    string
	UsageLine                string
	RequiredSubcommandsBlock string
	RequiredOthersBlock      string
	ExampleLine              string
}

// Help renders r with the given templates. usage and example are already
// expanded for the invoking prefix and command name.
func (r *Rejection) Help(msgs config.Messages, usage, example string) Help {
	h := Help{
		Title:       msgs.WrongArguments,
		UsageLine:   fmt.Sprintf("%s: `%s`", msgs.Usage, usage),
		ExampleLine: fmt.Sprintf("%s: %s", msgs.Example, example),
	}

	if len(r.Subcommands) > 0 {
		entries := make([]string, 0, len(r.Subcommands))
		for _, n := range r.Subcommands {
			entries = append(entries, fmt.Sprintf("**%s**\n> _%s_\n", n.Name, n.Description))
		}
		h.RequiredSubcommandsBlock = msgs.ChooseBetweenSubcommands + "\n> " + strings.Join(entries, "\n> ")
	}

	if len(r.Options) > 0 {
		entries := make([]string, 0, len(r.Options))
		for _, n := range r.Options {
			need := config.Format(msgs.NeedsToBe, msgs.TypeLabel(n.Kind.String()))
			entries = append(entries, fmt.Sprintf("**%s** (%s)\n> _%s_\n", n.Name, need, n.Description))
		}
		if h.RequiredSubcommandsBlock != "" {
			h.RequiredOthersBlock = "\n" + msgs.OrOtherOptions + "\n> " + strings.Join(entries, "\n> ")
		} else {
			h.RequiredOthersBlock = msgs.ChooseBetweenOptions + "\n> " + strings.Join(entries, "\n> ")
		}
	}
	return h
}

// Description joins the usage line and both blocks into an embed body.
func (h Help) Description() string {
	return h.UsageLine + "\n\n" + h.RequiredSubcommandsBlock + h.RequiredOthersBlock
}

// Embed builds the Discord embed for h.
func (h Help) Embed(color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       h.Title,
		Description: h.Description(),
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: h.ExampleLine},
	}
}
