package core

import (
	"fmt"
	"sort"
	"strings"

	"guildkit/internal/argument"
	"guildkit/internal/command"
	"guildkit/internal/config"
	"guildkit/internal/resolve"

	"github.com/bwmarrin/discordgo"
)

type Help struct {
	command.Base
	registry *command.Registry
}

func NewHelp(reg *command.Registry) *Help {
	return &Help{registry: reg}
}

func (h *Help) Name() string        { return "help" }
func (h *Help) Description() string { return "Get a list of available commands" }
func (h *Help) Aliases() []string   { return []string{"commands"} }
func (h *Help) Category() string    { return "Information" }
func (h *Help) Usage() string       { return "%PREFIX%%CMD% [command]" }
func (h *Help) Examples() []string  { return []string{"%PREFIX%%CMD%", "%PREFIX%%CMD% ping"} }

func (h *Help) SlashVisibility() command.Visibility { return command.Hidden }

func (h *Help) Arguments() []*argument.Node {
	return []*argument.Node{
		argument.Scalar(argument.String, "command", "Command to explain", false),
	}
}

func (h *Help) Run(c *command.Context, args resolve.Args) error {
	if name := args.String(0); name != "" {
		e, ok := h.registry.Lookup(name)
		if !ok {
			return c.Respond(fmt.Sprintf("Unknown command `%s`.", name))
		}
		return c.RespondEmbed(detailEmbed(e, c.Prefix))
	}
	return c.RespondEmbed(listEmbed(h.registry.All(), c.Prefix))
}

func listEmbed(entries []*command.Entry, prefix string) *discordgo.MessageEmbed {
	byCategory := make(map[string][]*command.Entry)
	for _, e := range entries {
		byCategory[e.Category] = append(byCategory[e.Category], e)
	}
	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool {
		wi, wj := config.CategoryWeight(categories[i]), config.CategoryWeight(categories[j])
		if wi != wj {
			return wi < wj
		}
		return categories[i] < categories[j]
	})

	var sb strings.Builder
	for _, cat := range categories {
		cmds := byCategory[cat]
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
		sb.WriteString(fmt.Sprintf("**%s**\n", cat))
		for _, e := range cmds {
			sb.WriteString(fmt.Sprintf("`%s` - %s\n", e.Name, e.Description))
		}
		sb.WriteString("\n")
	}

	return &discordgo.MessageEmbed{
		Title:       "Commands",
		Description: strings.TrimSpace(sb.String()),
		Color:       command.EmbedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Use %shelp <command> for details", prefix)},
	}
}

func detailEmbed(e *command.Entry, prefix string) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Usage", Value: "`" + config.Template(e.Usage, prefix, e.Name) + "`"},
	}
	if len(e.Aliases) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Aliases", Value: strings.Join(e.Aliases, ", ")})
	}
	examples := make([]string, len(e.Examples))
	for i, ex := range e.Examples {
		examples[i] = "`" + config.Template(ex, prefix, e.Name) + "`"
	}
	fields = append(fields,
		&discordgo.MessageEmbedField{Name: "Examples", Value: strings.Join(examples, "\n")},
		&discordgo.MessageEmbedField{Name: "Category", Value: e.Category, Inline: true},
	)
	return &discordgo.MessageEmbed{
		Title:       e.Name,
		Description: e.Description,
		Color:       command.EmbedColor,
		Fields:      fields,
	}
}
