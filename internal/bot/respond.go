package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// channelResponder answers a text command in the channel it came from.
type channelResponder struct {
	api       API
	channelID string
}

func (r *channelResponder) Respond(ctx context.Context, content string) error {
	_, err := r.api.ChannelMessageSend(r.channelID, content, discordgo.WithContext(ctx))
	return err
}

func (r *channelResponder) RespondEmbed(ctx context.Context, embed *discordgo.MessageEmbed) error {
	_, err := r.api.ChannelMessageSendEmbed(r.channelID, embed, discordgo.WithContext(ctx))
	return err
}

// interactionResponder answers a slash command by editing the deferred
// response.
type interactionResponder struct {
	api         API
	interaction *discordgo.Interaction
}

// acknowledge defers the interaction so the handler may take longer than the
// platform's response window.
func (r *interactionResponder) acknowledge(ctx context.Context, ephemeral bool) error {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	return r.api.InteractionRespond(r.interaction, resp, discordgo.WithContext(ctx))
}

func (r *interactionResponder) Respond(ctx context.Context, content string) error {
	_, err := r.api.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{Content: &content}, discordgo.WithContext(ctx))
	return err
}

func (r *interactionResponder) RespondEmbed(ctx context.Context, embed *discordgo.MessageEmbed) error {
	embeds := []*discordgo.MessageEmbed{embed}
	_, err := r.api.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{Embeds: &embeds}, discordgo.WithContext(ctx))
	return err
}
