package core

import (
	"errors"
	"fmt"
	"strings"

	"guildkit/internal/argument"
	"guildkit/internal/command"
	"guildkit/internal/ledger"
	"guildkit/internal/resolve"
	"guildkit/internal/security"
	"guildkit/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

const listLimit = 15

// Errors inspects and prunes the error ledger.
type Errors struct {
	command.Base
	ledger *ledger.Ledger
}

func NewErrors(l *ledger.Ledger) *Errors {
	return &Errors{ledger: l}
}

func (e *Errors) Name() string        { return "errors" }
func (e *Errors) Description() string { return "Inspect recorded command errors" }
func (e *Errors) Category() string    { return "Maintenance" }
func (e *Errors) Usage() string       { return "%PREFIX%%CMD% <list|show|remove|clear> [id]" }

func (e *Errors) Examples() []string {
	return []string{"%PREFIX%%CMD% list", "%PREFIX%%CMD% show 1a2b3c4d"}
}

func (e *Errors) SlashVisibility() command.Visibility { return command.Hidden }
func (e *Errors) Security() *security.Policy          { return adminOnly() }
func (e *Errors) Middleware() []cmd.Middleware        { return guildScoped() }

func (e *Errors) Arguments() []*argument.Node {
	return []*argument.Node{
		argument.Sub("list", "List recorded errors"),
		argument.Sub("show", "Show one error",
			argument.Scalar(argument.String, "id", "Error ID", true)),
		argument.Sub("remove", "Remove one error",
			argument.Scalar(argument.String, "id", "Error ID", true)),
		argument.Sub("clear", "Remove every error"),
	}
}

func (e *Errors) Run(c *command.Context, args resolve.Args) error {
	if !e.ledger.Persistent() {
		return c.Respond(needsDatabase)
	}
	ctx := c.Context()
	id := strings.TrimPrefix(args.String(1), "#")

	switch args.String(0) {
	case "show":
		rec, err := e.ledger.Get(ctx, id)
		if errors.Is(err, ledger.ErrNotFound) {
			return c.Respond(fmt.Sprintf("No error with ID **#%s**.", id))
		}
		if err != nil {
			return fmt.Errorf("failed to load error %s: %w", id, err)
		}
		return c.RespondEmbed(recordEmbed(rec))

	case "remove":
		ok, err := e.ledger.Remove(ctx, id, false)
		if err != nil {
			return fmt.Errorf("failed to remove error %s: %w", id, err)
		}
		if !ok {
			return c.Respond(fmt.Sprintf("No error with ID **#%s**.", id))
		}
		return c.Respond(fmt.Sprintf("Removed error **#%s**.", id))

	case "clear":
		n, err := e.ledger.Clear(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear errors: %w", err)
		}
		return c.Respond(fmt.Sprintf("Removed %d errors.", n))

	default:
		recs, err := e.ledger.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list errors: %w", err)
		}
		if len(recs) == 0 {
			return c.Respond("No errors recorded.")
		}
		return c.RespondEmbed(listRecordsEmbed(recs))
	}
}

func listRecordsEmbed(recs []*ledger.Record) *discordgo.MessageEmbed {
	var sb strings.Builder
	start := 0
	if len(recs) > listLimit {
		start = len(recs) - listLimit
	}
	for i := len(recs) - 1; i >= start; i-- {
		r := recs[i]
		sb.WriteString(fmt.Sprintf("`#%s` %s %s: %s\n",
			r.ID, r.CreatedAt.UTC().Format("2006-01-02 15:04"), origin(r), truncate(r.Error.Message, 60)))
	}
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Errors (%d)", len(recs)),
		Description: strings.TrimSpace(sb.String()),
		Color:       command.EmbedColor,
	}
	if start > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Showing the newest %d", listLimit)}
	}
	return embed
}

func recordEmbed(r *ledger.Record) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Origin", Value: origin(r), Inline: true},
		{Name: "Recorded", Value: r.CreatedAt.UTC().Format("2006-01-02 15:04:05"), Inline: true},
	}
	if s := r.Context; s != nil {
		if s.AuthorID != "" {
			fields = append(fields, &discordgo.MessageEmbedField{Name: "User", Value: fmt.Sprintf("%s (%s)", s.AuthorName, s.AuthorID), Inline: true})
		}
		if s.Content != "" {
			fields = append(fields, &discordgo.MessageEmbedField{Name: "Message", Value: truncate(s.Content, 1000)})
		}
		if s.MessageURL != "" {
			fields = append(fields, &discordgo.MessageEmbedField{Name: "Link", Value: s.MessageURL})
		}
	}
	if r.Error.Stack != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Stack", Value: "```" + truncate(r.Error.Stack, 1000) + "```"})
	}
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Error #%s", r.ID),
		Description: fmt.Sprintf("**%s**: %s", r.Error.Name, truncate(r.Error.Message, 2000)),
		Color:       command.EmbedColor,
		Fields:      fields,
	}
}

func origin(r *ledger.Record) string {
	if r.Command != nil {
		return "`" + r.Command.Name + "`"
	}
	if r.Type != ledger.TypeCommand {
		return string(r.Type)
	}
	return "unknown"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
