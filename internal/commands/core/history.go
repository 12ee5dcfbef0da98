package core

import (
	"fmt"
	"strings"

	"guildkit/internal/command"
	"guildkit/internal/resolve"
	"guildkit/internal/security"
	"guildkit/pkg/cmd"
)

const (
	maxMessageLength = 2000
	codeBlockOpen    = "```md"
	codeBlockClose   = "```"
)

var maxTableLength = maxMessageLength - len(codeBlockOpen) - len(codeBlockClose) - 2

// History shows the guild's recent command invocations.
type History struct {
	command.Base
}

func (h *History) Name() string        { return "history" }
func (h *History) Description() string { return "Review recently used commands" }
func (h *History) Aliases() []string   { return []string{"cmd-log"} }
func (h *History) Category() string    { return "Settings" }

func (h *History) SlashVisibility() command.Visibility { return command.Hidden }
func (h *History) Security() *security.Policy          { return adminOnly() }
func (h *History) Middleware() []cmd.Middleware        { return guildScoped() }

func (h *History) Run(c *command.Context, _ resolve.Args) error {
	if !c.Storage.Enabled() {
		return c.Respond(needsDatabase)
	}
	records, err := c.Storage.CommandHistory(c.Context(), c.GuildID)
	if err != nil {
		return fmt.Errorf("failed to load command history: %w", err)
	}
	if len(records) == 0 {
		return c.Respond("No commands recorded yet.")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-19s\t%-15s\t%-12s\t%s\n", "# Datetime", "# Username", "# Channel", "# Command"))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		marker := c.Prefix
		if r.Slash {
			marker = "/"
		}
		line := fmt.Sprintf("%-19s\t%-15s\t#%-12s\t%s%s\n",
			r.Datetime.Format("2006-01-02 15:04:05"),
			r.Username,
			r.ChannelName,
			marker,
			strings.TrimSpace(r.Command+" "+strings.Join(r.Args, " ")),
		)
		if sb.Len()+len(line) > maxTableLength {
			break
		}
		sb.WriteString(line)
	}
	return c.Respond(codeBlockOpen + "\n" + sb.String() + codeBlockClose)
}
