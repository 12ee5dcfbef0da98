// Package ledger records command and process faults in the store, reports
// them to an operator log channel and drives the invite reaction workflow on
// those reports.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"guildkit/internal/config"
	"guildkit/internal/fault"
	"guildkit/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix   = "error-"
	mappingKey  = "error-messages"
	reservedID  = "messages"
	idLength    = 8
	maxAttempts = 64
	idAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	ErrNotFound    = errors.New("error record not found")
	ErrIDExhausted = errors.New("could not generate a free error id")
)

// Notifier is the log channel side of the ledger.
type Notifier interface {
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (messageID string, err error)
	EditEmbed(ctx context.Context, channelID, messageID string, embed *discordgo.MessageEmbed) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	CreateInvite(ctx context.Context, channelID string) (url string, err error)
}

type Option func(*Ledger)

// WithLogChannel sets the channel reports are sent to. Without one, Report
// is a no-op.
func WithLogChannel(id string) Option {
	return func(l *Ledger) { l.logChannelID = id }
}

// WithEmoji sets the reaction that requests an invite.
func WithEmoji(emoji string) Option {
	return func(l *Ledger) { l.emoji = emoji }
}

// WithMessages sets the user-facing templates.
func WithMessages(m config.Messages) Option {
	return func(l *Ledger) { l.msgs = m }
}

// WithIDGenerator replaces the random ID source.
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) { l.newID = fn }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

type Ledger struct {
	store        *storage.Storage
	notifier     Notifier
	logChannelID string
	emoji        string
	msgs         config.Messages
	newID        func() string
	logger       zerolog.Logger

	// mu serializes ID allocation and every read-modify-write of the
	// mapping document.
	mu      sync.Mutex
	onError func(ErrorEvent) bool
}

// New builds a ledger. store may be nil or disabled, notifier may be nil.
func New(store *storage.Storage, notifier Notifier, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		notifier: notifier,
		emoji:    "📨",
		msgs:     config.DefaultMessages(),
		newID:    randomID,
		logger:   log.With().Str("component", "ledger").Logger(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func randomID() string {
	b := make([]byte, idLength)
	for i := range b {
		b[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return string(b)
}

// Persistent reports whether records are stored.
func (l *Ledger) Persistent() bool {
	return l.store.Enabled()
}

// OnError installs a callback run for every command fault before the user is
// notified. Returning false suppresses the default notification.
func (l *Ledger) OnError(fn func(ErrorEvent) bool) {
	l.mu.Lock()
	l.onError = fn
	l.mu.Unlock()
}

// Record persists a failure and returns its ID. Without a store it only logs
// and returns "".
func (l *Ledger) Record(ctx context.Context, err error, snap *Snapshot, cmd *CommandInfo) (string, error) {
	return l.record(ctx, err, snap, cmd, TypeCommand)
}

func (l *Ledger) record(ctx context.Context, err error, snap *Snapshot, cmd *CommandInfo, typ Type) (string, error) {
	rec := &Record{
		Context:        snap,
		Error:          Describe(err),
		Command:        cmd,
		IsMessageError: snap != nil && !snap.Slash,
		Type:           typ,
		CreatedAt:      time.Now().UTC(),
	}
	l.logRecord(rec, err)

	if !l.store.Enabled() {
		return "", nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id, err := l.allocateID(ctx)
	if err != nil {
		return "", err
	}
	rec.ID = id
	if err := l.store.Save(ctx, keyPrefix+id, rec); err != nil {
		return "", fmt.Errorf("save error record: %w", err)
	}
	return id, nil
}

func (l *Ledger) allocateID(ctx context.Context) (string, error) {
	for range maxAttempts {
		id := l.newID()
		if id == "" || id == reservedID {
			continue
		}
		taken, err := l.store.Has(ctx, keyPrefix+id)
		if err != nil {
			return "", fmt.Errorf("check error id: %w", err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

func (l *Ledger) logRecord(rec *Record, err error) {
	ev := l.logger.Error().Err(err).Str("type", string(rec.Type))
	if rec.Command != nil {
		ev = ev.Str("command", rec.Command.Name)
	}
	if s := rec.Context; s != nil {
		ev = ev.Str("guild_id", s.GuildID).
			Str("channel_id", s.ChannelID).
			Str("author_id", s.AuthorID).
			Str("invocation_id", s.InvocationID).
			Bool("slash", s.Slash)
	}
	if rec.Error.Stack != "" {
		ev = ev.Str("stack", rec.Error.Stack)
	}
	ev.Msg("Recorded error")
}

// Get loads one record.
func (l *Ledger) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" || id == reservedID {
		return nil, ErrNotFound
	}
	var rec Record
	ok, err := l.store.Load(ctx, keyPrefix+id, &rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// List returns every stored record, oldest first.
func (l *Ledger) List(ctx context.Context) ([]*Record, error) {
	keys, err := l.store.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	var out []*Record
	for _, k := range keys {
		if k == mappingKey {
			continue
		}
		rec, err := l.Get(ctx, strings.TrimPrefix(k, keyPrefix))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Remove deletes a record and its mapping entries. Unless keepMessage is
// set, the report messages are deleted from the log channel too. It reports
// whether the record existed.
func (l *Ledger) Remove(ctx context.Context, id string, keepMessage bool) (bool, error) {
	if _, err := l.Get(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Delete(ctx, keyPrefix+id); err != nil {
		return false, fmt.Errorf("delete error record: %w", err)
	}

	mappings, err := l.mappings(ctx)
	if err != nil {
		return true, err
	}
	changed := false
	for msgID, m := range mappings {
		if m.Error != id {
			continue
		}
		if !keepMessage && l.notifier != nil && l.logChannelID != "" {
			if err := l.notifier.DeleteMessage(ctx, l.logChannelID, msgID); err != nil {
				l.logger.Warn().Err(err).Str("message_id", msgID).Msg("Failed to delete report message")
			}
		}
		delete(mappings, msgID)
		changed = true
	}
	if changed {
		if err := l.store.Save(ctx, mappingKey, mappings); err != nil {
			return true, fmt.Errorf("save error mappings: %w", err)
		}
	}
	return true, nil
}

// Clear removes every record and returns how many were removed.
func (l *Ledger) Clear(ctx context.Context) (int, error) {
	recs, err := l.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range recs {
		ok, err := l.Remove(ctx, rec.ID, false)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// Mappings returns the report-message mapping document.
func (l *Ledger) Mappings(ctx context.Context) (map[string]Mapping, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mappings(ctx)
}

func (l *Ledger) mappings(ctx context.Context) (map[string]Mapping, error) {
	m := map[string]Mapping{}
	if _, err := l.store.Load(ctx, mappingKey, &m); err != nil {
		return nil, fmt.Errorf("load error mappings: %w", err)
	}
	if m == nil {
		m = map[string]Mapping{}
	}
	return m, nil
}

// Capture records and reports a command fault. Failures of either step are
// logged; the returned ID is "" when nothing was stored.
func (l *Ledger) Capture(ctx context.Context, err error, snap *Snapshot, cmd *CommandInfo) string {
	return l.capture(ctx, err, snap, cmd, TypeCommand)
}

func (l *Ledger) capture(ctx context.Context, err error, snap *Snapshot, cmd *CommandInfo, typ Type) string {
	id, rerr := l.record(ctx, err, snap, cmd, typ)
	if rerr != nil {
		l.logger.Error().Err(rerr).Msg("Failed to record error")
	}

	rec := &Record{ID: id, Context: snap, Error: Describe(err), Command: cmd, Type: typ, CreatedAt: time.Now().UTC()}
	if id != "" {
		if stored, gerr := l.Get(ctx, id); gerr == nil {
			rec = stored
		}
	}
	if perr := l.report(ctx, rec); perr != nil {
		l.logger.Error().Err(perr).Str("error_id", id).Msg("Failed to report error")
	}
	return id
}

// UserNotice runs the OnError callback and returns the message to show the
// invoking user, or false when the callback suppressed it.
func (l *Ledger) UserNotice(ev ErrorEvent) (string, bool) {
	l.mu.Lock()
	fn := l.onError
	l.mu.Unlock()
	if fn != nil && !fn(ev) {
		return "", false
	}

	name := ""
	if ev.Command != nil {
		name = ev.Command.Name
	}
	if ev.ID != "" {
		return config.Format(l.msgs.ErrorWithDatabase, name, ev.ID), true
	}
	return config.Format(l.msgs.ErrorWithoutDatabase, name), true
}

// OnUncaught records a recovered process-level panic.
func (l *Ledger) OnUncaught(err error) {
	l.capture(context.Background(), err, nil, nil, TypeUncaught)
}

// OnUnhandled records an error returned by background work.
func (l *Ledger) OnUnhandled(err error) {
	l.capture(context.Background(), err, nil, nil, TypeUnhandled)
}

// Attach subscribes the ledger to hub and returns the unsubscribe function.
func (l *Ledger) Attach(hub *fault.Hub) func() {
	return hub.Subscribe(func(kind fault.Kind, err error) {
		switch kind {
		case fault.Uncaught:
			l.OnUncaught(err)
		default:
			l.OnUnhandled(err)
		}
	})
}
