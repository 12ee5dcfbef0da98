package command

import (
	"context"
	"errors"
	"fmt"

	"guildkit/internal/ledger"
	"guildkit/internal/security"
	"guildkit/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

var errNoResponder = errors.New("context has no responder")

// Context is what a command receives for one invocation, from either a text
// message or a slash interaction.
type Context struct {
	ctx context.Context

	Session     *discordgo.Session
	Message     *discordgo.MessageCreate
	Interaction *discordgo.InteractionCreate

	GuildID     string
	GuildName   string
	ChannelID   string
	ChannelName string
	Author      *discordgo.User
	Member      *discordgo.Member

	// Content is the raw message text; empty for slash invocations.
	Content string
	Prefix  string
	// Invoked is the name or alias the user typed.
	Invoked      string
	InvocationID string

	GuildSettings storage.Settings
	UserSettings  storage.Settings
	Storage       *storage.Storage

	Command Descriptor
	Reply   security.Responder
	Logger  zerolog.Logger

	// Async runs fn in the background and routes its failure to the ledger.
	Async func(c *Context, fn func(ctx context.Context) error)
}

// Context returns the invocation's context. It is never nil.
func (c *Context) Context() context.Context {
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of c using ctx.
func (c *Context) WithContext(ctx context.Context) *Context {
	c2 := *c
	c2.ctx = ctx
	return &c2
}

func (c *Context) IsSlash() bool {
	return c.Interaction != nil
}

func (c *Context) AuthorID() string {
	if c.Author == nil {
		return ""
	}
	return c.Author.ID
}

// Respond sends content back to wherever the command was invoked.
func (c *Context) Respond(content string) error {
	if c.Reply == nil {
		return errNoResponder
	}
	return c.Reply.Respond(c.Context(), content)
}

func (c *Context) RespondEmbed(embed *discordgo.MessageEmbed) error {
	if c.Reply == nil {
		return errNoResponder
	}
	return c.Reply.RespondEmbed(c.Context(), embed)
}

// Go runs fn outside the command. A returned error or panic is recorded as a
// fault of this command.
func (c *Context) Go(fn func(ctx context.Context) error) {
	if c.Async != nil {
		c.Async(c, fn)
		return
	}
	go fn(context.WithoutCancel(c.Context()))
}

// Request builds the security request for this invocation.
func (c *Context) Request(args []any) security.Request {
	return security.Request{
		GuildID:    c.GuildID,
		ChannelID:  c.ChannelID,
		UserID:     c.AuthorID(),
		Args:       args,
		Invocation: c,
		Responder:  c.Reply,
	}
}

// Snapshot captures the serializable part of c for error records.
func (c *Context) Snapshot() *ledger.Snapshot {
	s := &ledger.Snapshot{
		InvocationID: c.InvocationID,
		GuildID:      c.GuildID,
		GuildName:    c.GuildName,
		ChannelID:    c.ChannelID,
		ChannelName:  c.ChannelName,
		Content:      c.Content,
		Slash:        c.IsSlash(),
	}
	if c.Author != nil {
		s.AuthorID = c.Author.ID
		s.AuthorName = c.Author.Username
	}
	if c.Message != nil && c.Message.Message != nil {
		guild := c.GuildID
		if guild == "" {
			guild = "@me"
		}
		s.MessageURL = fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guild, c.ChannelID, c.Message.ID)
	}
	return s
}
