package bot

import (
	"context"
	"maps"
	"math/rand/v2"
	"strings"
	"sync"

	"guildkit/internal/command"
	"guildkit/internal/config"
	"guildkit/internal/fault"
	"guildkit/internal/ledger"
	"guildkit/internal/resolve"
	"guildkit/internal/security"
	"guildkit/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultPrefix = "."

// MessageHandler runs before any command is looked up, for text and slash
// invocations alike. Returning false stops handling.
type MessageHandler func(c *command.Context) bool

type DispatcherOptions struct {
	// Session is handed to commands through their Context. It may be nil.
	Session  *discordgo.Session
	Registry *command.Registry
	Ledger   *ledger.Ledger
	Store    *storage.Storage
	Messages config.Messages

	Prefix               string
	DisableMentionPrefix bool
	GuildDefaults        storage.Settings
	UserDefaults         storage.Settings
}

// Dispatcher turns gateway events into command invocations.
type Dispatcher struct {
	api      API
	platform *Platform
	session  *discordgo.Session
	registry *command.Registry
	resolver *resolve.Resolver
	gate     *security.Gate
	ledger   *ledger.Ledger
	store    *storage.Storage
	msgs     config.Messages

	prefix        string
	mentionPrefix bool
	guildDefaults storage.Settings
	userDefaults  storage.Settings

	mu       sync.RWMutex
	handlers []MessageHandler

	wg     sync.WaitGroup
	pick   func(n int) int
	logger zerolog.Logger
}

func NewDispatcher(p *Platform, opts DispatcherOptions) *Dispatcher {
	if opts.Registry == nil {
		opts.Registry = command.NewRegistry()
	}
	if opts.Ledger == nil {
		opts.Ledger = ledger.New(opts.Store, p, ledger.WithMessages(opts.Messages))
	}
	var sets security.SetSource
	if opts.Store.Enabled() {
		sets = opts.Store
	}
	return &Dispatcher{
		api:           p.api,
		platform:      p,
		session:       opts.Session,
		registry:      opts.Registry,
		resolver:      resolve.New(p),
		gate:          security.NewGate(p, sets, opts.Registry, opts.Messages),
		ledger:        opts.Ledger,
		store:         opts.Store,
		msgs:          opts.Messages,
		prefix:        opts.Prefix,
		mentionPrefix: !opts.DisableMentionPrefix,
		guildDefaults: opts.GuildDefaults,
		userDefaults:  opts.UserDefaults,
		pick:          rand.IntN,
		logger:        log.With().Str("component", "dispatch").Logger(),
	}
}

// AddMessageHandler appends h to the handlers run before every command.
func (d *Dispatcher) AddMessageHandler(h MessageHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Wait blocks until background work started through Context.Go has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// HandleMessage runs the text command in m, if any.
func (d *Dispatcher) HandleMessage(ctx context.Context, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil || m.Author.Bot {
		return
	}

	var member *discordgo.Member
	if m.Member != nil {
		mem := *m.Member
		mem.User = m.Author
		mem.GuildID = m.GuildID
		member = &mem
	}
	c := d.newContext(ctx, m.GuildID, m.ChannelID, m.Author, member)
	c.Message = m
	c.Content = m.Content
	c.Reply = &channelResponder{api: d.api, channelID: m.ChannelID}
	d.loadSettings(c)

	if !d.runHandlers(c) {
		return
	}

	prefix := d.fullPrefix(c)
	c.Prefix = prefix
	if len(m.Content) < len(prefix) || !strings.EqualFold(m.Content[:len(prefix)], prefix) {
		return
	}
	tokens := strings.FieldsFunc(m.Content[len(prefix):], func(r rune) bool { return r == ' ' })
	if len(tokens) == 0 {
		return
	}
	name := strings.ToLower(tokens[0])
	entry, ok := d.registry.Lookup(name)
	if !ok {
		return
	}
	c.Invoked = name
	d.describe(c, entry)

	var args resolve.Args
	if len(entry.Arguments) > 0 {
		var rej *resolve.Rejection
		args, rej = d.resolver.Text(c.Context(), c.GuildID, entry.Arguments, tokens[1:])
		if rej != nil {
			c.Logger.Debug().Str("reason", rej.Error()).Msg("Arguments rejected")
			usage := config.Template(entry.Usage, prefix, entry.Name)
			example := config.Template(entry.Examples[d.pick(len(entry.Examples))], prefix, entry.Name)
			if err := c.RespondEmbed(rej.Help(d.msgs, usage, example).Embed(command.EmbedColor)); err != nil {
				c.Logger.Warn().Err(err).Msg("Failed to send argument help")
			}
			return
		}
	}
	d.execute(c, entry, args)
}

// HandleInteraction runs a slash command.
func (d *Dispatcher) HandleInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	if i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.CommandType != 0 && data.CommandType != discordgo.ChatApplicationCommand {
		return
	}
	entry, ok := d.registry.Lookup(data.Name)
	if !ok || !entry.Slash {
		d.logger.Warn().Str("command", data.Name).Msg("Unknown slash command")
		return
	}

	r := &interactionResponder{api: d.api, interaction: i.Interaction}
	if err := r.acknowledge(ctx, entry.Visibility == command.Hidden); err != nil {
		d.logger.Error().Err(err).Str("command", entry.Name).Msg("Failed to acknowledge interaction")
		return
	}

	author := i.User
	if i.Member != nil && i.Member.User != nil {
		author = i.Member.User
	}
	c := d.newContext(ctx, i.GuildID, i.ChannelID, author, i.Member)
	c.Interaction = i
	c.Reply = r
	d.loadSettings(c)
	c.Prefix = d.basePrefix(c)
	c.Invoked = entry.Name
	d.describe(c, entry)

	if !d.runHandlers(c) {
		return
	}

	var args resolve.Args
	if len(entry.Arguments) > 0 {
		var err error
		args, err = d.resolver.Structured(c.Context(), c.GuildID, entry.Arguments, resolve.FromInteraction(data.Options))
		if err != nil {
			c.Logger.Warn().Err(err).Msg("Failed to resolve slash options")
			if rerr := c.Respond(d.msgs.WrongArguments); rerr != nil {
				c.Logger.Warn().Err(rerr).Msg("Failed to send argument error")
			}
			return
		}
	}
	d.execute(c, entry, args)
}

// HandleReaction forwards reactions on report messages to the ledger.
func (d *Dispatcher) HandleReaction(ctx context.Context, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil {
		return
	}
	if self, err := d.platform.SelfID(ctx); err == nil && r.UserID == self {
		return
	}
	if err := d.ledger.HandleReaction(ctx, r.ChannelID, r.MessageID, r.UserID, r.Emoji.Name); err != nil {
		d.logger.Error().Err(err).Str("message", r.MessageID).Msg("Failed to handle report reaction")
	}
}

// HandleMessageDelete forwards deletions of report messages to the ledger.
func (d *Dispatcher) HandleMessageDelete(ctx context.Context, m *discordgo.MessageDelete) {
	if m.Message == nil {
		return
	}
	if err := d.ledger.HandleMessageDelete(ctx, m.ChannelID, m.ID); err != nil {
		d.logger.Error().Err(err).Str("message", m.ID).Msg("Failed to handle report deletion")
	}
}

func (d *Dispatcher) newContext(ctx context.Context, guildID, channelID string, author *discordgo.User, member *discordgo.Member) *command.Context {
	id := uuid.NewString()
	userID := ""
	if author != nil {
		userID = author.ID
	}
	c := &command.Context{
		Session:      d.session,
		GuildID:      guildID,
		ChannelID:    channelID,
		Author:       author,
		Member:       member,
		InvocationID: id,
		Storage:      d.store,
		Async:        d.async,
		Logger: d.logger.With().
			Str("invocation", id).
			Str("guild", guildID).
			Str("channel", channelID).
			Str("user", userID).
			Logger(),
	}
	return c.WithContext(ctx)
}

// describe attaches the matched command and resolves display names.
func (d *Dispatcher) describe(c *command.Context, e *command.Entry) {
	c.Command = e.Descriptor
	c.Logger = c.Logger.With().Str("command", e.Name).Logger()
	c.GuildName = d.platform.GuildName(c.Context(), c.GuildID)
	c.ChannelName = d.platform.ChannelName(c.Context(), c.ChannelID)
}

func (d *Dispatcher) loadSettings(c *command.Context) {
	c.GuildSettings = maps.Clone(d.guildDefaults)
	c.UserSettings = maps.Clone(d.userDefaults)
	if !d.store.Enabled() {
		return
	}
	if c.GuildID != "" {
		if s, err := d.store.GuildSettings(c.Context(), c.GuildID, d.guildDefaults); err != nil {
			c.Logger.Warn().Err(err).Msg("Failed to load guild settings")
		} else {
			c.GuildSettings = s
		}
	}
	if id := c.AuthorID(); id != "" {
		if s, err := d.store.UserSettings(c.Context(), id, d.userDefaults); err != nil {
			c.Logger.Warn().Err(err).Msg("Failed to load user settings")
		} else {
			c.UserSettings = s
		}
	}
}

func (d *Dispatcher) runHandlers(c *command.Context) bool {
	d.mu.RLock()
	handlers := d.handlers
	d.mu.RUnlock()
	for _, h := range handlers {
		if !h(c) {
			return false
		}
	}
	return true
}

// fullPrefix returns the mention prefix when the message starts with one,
// otherwise the configured prefix.
func (d *Dispatcher) fullPrefix(c *command.Context) string {
	if d.mentionPrefix {
		if self, err := d.platform.SelfID(c.Context()); err == nil {
			for _, p := range []string{"<@" + self + "> ", "<@!" + self + "> "} {
				if strings.HasPrefix(c.Content, p) {
					return p
				}
			}
		}
	}
	return d.basePrefix(c)
}

func (d *Dispatcher) basePrefix(c *command.Context) string {
	if d.store.Enabled() {
		if p := c.GuildSettings.String("prefix"); p != "" {
			return p
		}
	}
	if d.prefix != "" {
		return d.prefix
	}
	return defaultPrefix
}

func (d *Dispatcher) execute(c *command.Context, e *command.Entry, args resolve.Args) {
	if !d.gate.Evaluate(c.Context(), e.Security, c.Request(args)) {
		c.Logger.Debug().Msg("Command denied by security policy")
		return
	}
	c.Logger.Debug().Msg("Running command")
	if err := run(c, e, args); err != nil {
		d.fail(c, err)
	}
}

func run(c *command.Context, e *command.Entry, args resolve.Args) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fault.NewPanicError(r)
		}
	}()
	return e.Run(c, args)
}

// fail records a handler fault and tells the invoking user about it.
func (d *Dispatcher) fail(c *command.Context, err error) {
	ctx := context.WithoutCancel(c.Context())
	snap := c.Snapshot()
	info := c.Command.Info()
	id := d.ledger.Capture(ctx, err, snap, info)

	notice, ok := d.ledger.UserNotice(ledger.ErrorEvent{ID: id, Err: err, Snapshot: snap, Command: info})
	if !ok {
		return
	}
	if rerr := c.WithContext(ctx).Respond(notice); rerr != nil {
		c.Logger.Warn().Err(rerr).Msg("Failed to send error notice")
	}
}

func (d *Dispatcher) async(c *command.Context, fn func(ctx context.Context) error) {
	ctx := context.WithoutCancel(c.Context())
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.fail(c, fault.NewPanicError(r))
			}
		}()
		if err := fn(ctx); err != nil {
			d.fail(c, err)
		}
	}()
}
