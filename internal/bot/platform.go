package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// ErrForeignEntity is returned when an entity exists but belongs to another
// guild.
var ErrForeignEntity = errors.New("entity belongs to another guild")

var errNoGuild = errors.New("not in a guild")

// API is the part of *discordgo.Session the bot uses.
type API interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	UserChannelPermissions(userID, channelID string, options ...discordgo.RequestOption) (int64, error)

	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelInviteCreate(channelID string, i discordgo.Invite, options ...discordgo.RequestOption) (*discordgo.Invite, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error

	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)

	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandCreate(appID string, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandEdit(appID, guildID, cmdID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

var _ API = (*discordgo.Session)(nil)

// Platform looks things up in the session state first and falls back to
// REST. It implements resolve.Entities, security.PermissionSource and
// ledger.Notifier.
type Platform struct {
	api   API
	state *discordgo.State
}

// NewPlatform wraps api. state may be nil.
func NewPlatform(api API, state *discordgo.State) *Platform {
	return &Platform{api: api, state: state}
}

// SelfID returns the bot's own user ID.
func (p *Platform) SelfID(ctx context.Context) (string, error) {
	if p.state != nil && p.state.User != nil && p.state.User.ID != "" {
		return p.state.User.ID, nil
	}
	u, err := p.api.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("fetch bot user: %w", err)
	}
	return u.ID, nil
}

func (p *Platform) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if guildID == "" {
		return nil, errNoGuild
	}
	if p.state != nil {
		if m, err := p.state.Member(guildID, userID); err == nil {
			return m, nil
		}
	}
	return p.api.GuildMember(guildID, userID, discordgo.WithContext(ctx))
}

func (p *Platform) Channel(ctx context.Context, guildID, channelID string) (*discordgo.Channel, error) {
	ch, err := p.channel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if guildID != "" && ch.GuildID != guildID {
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrForeignEntity)
	}
	return ch, nil
}

func (p *Platform) channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if p.state != nil {
		if ch, err := p.state.Channel(channelID); err == nil {
			return ch, nil
		}
	}
	return p.api.Channel(channelID, discordgo.WithContext(ctx))
}

func (p *Platform) Role(ctx context.Context, guildID, roleID string) (*discordgo.Role, error) {
	if guildID == "" {
		return nil, errNoGuild
	}
	if p.state != nil {
		if r, err := p.state.Role(guildID, roleID); err == nil {
			return r, nil
		}
	}
	roles, err := p.api.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.ID == roleID {
			return r, nil
		}
	}
	return nil, discordgo.ErrStateNotFound
}

// GuildName returns the guild's name, or "" if it cannot be found.
func (p *Platform) GuildName(ctx context.Context, guildID string) string {
	if guildID == "" {
		return ""
	}
	if p.state != nil {
		if g, err := p.state.Guild(guildID); err == nil && g.Name != "" {
			return g.Name
		}
	}
	g, err := p.api.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return ""
	}
	return g.Name
}

// ChannelName returns the channel's name, or "" if it cannot be found.
func (p *Platform) ChannelName(ctx context.Context, channelID string) string {
	ch, err := p.channel(ctx, channelID)
	if err != nil {
		return ""
	}
	return ch.Name
}

// --- security.PermissionSource ---

func (p *Platform) BotPermissions(ctx context.Context, guildID, channelID string) (int64, error) {
	id, err := p.SelfID(ctx)
	if err != nil {
		return 0, err
	}
	return p.UserPermissions(ctx, guildID, channelID, id)
}

func (p *Platform) UserPermissions(ctx context.Context, guildID, channelID, userID string) (int64, error) {
	if p.state != nil {
		if perms, err := p.state.UserChannelPermissions(userID, channelID); err == nil {
			return perms, nil
		}
	}
	perms, err := p.api.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("permissions of %s in %s/%s: %w", userID, guildID, channelID, err)
	}
	return perms, nil
}

// --- ledger.Notifier ---

func (p *Platform) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (string, error) {
	msg, err := p.api.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (p *Platform) EditEmbed(ctx context.Context, channelID, messageID string, embed *discordgo.MessageEmbed) error {
	_, err := p.api.ChannelMessageEditEmbed(channelID, messageID, embed, discordgo.WithContext(ctx))
	return err
}

func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return p.api.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (p *Platform) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return p.api.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
}

// CreateInvite creates a permanent invite to channelID.
func (p *Platform) CreateInvite(ctx context.Context, channelID string) (string, error) {
	inv, err := p.api.ChannelInviteCreate(channelID, discordgo.Invite{MaxAge: 0, MaxUses: 0}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return "https://discord.gg/" + inv.Code, nil
}
