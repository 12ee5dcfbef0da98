package core

import (
	"fmt"

	"guildkit/internal/command"
	"guildkit/internal/resolve"

	"github.com/bwmarrin/discordgo"
)

type Ping struct {
	command.Base
}

func (p *Ping) Name() string        { return "ping" }
func (p *Ping) Description() string { return "Check bot latency" }
func (p *Ping) Category() string    { return "Maintenance" }

func (p *Ping) Run(c *command.Context, _ resolve.Args) error {
	desc := "Gateway latency unknown"
	if c.Session != nil {
		desc = fmt.Sprintf("Latency: %dms", c.Session.HeartbeatLatency().Milliseconds())
	}
	return c.RespondEmbed(&discordgo.MessageEmbed{
		Title:       "Pong!",
		Description: desc,
		Color:       command.EmbedColor,
	})
}
