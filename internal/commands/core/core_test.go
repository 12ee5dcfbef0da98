package core

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"guildkit/internal/command"
	"guildkit/internal/ledger"
	"guildkit/internal/resolve"
	"guildkit/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	messages []string
	embeds   []*discordgo.MessageEmbed
}

func (r *recorder) Respond(_ context.Context, content string) error {
	r.messages = append(r.messages, content)
	return nil
}

func (r *recorder) RespondEmbed(_ context.Context, e *discordgo.MessageEmbed) error {
	r.embeds = append(r.embeds, e)
	return nil
}

func newStore(t *testing.T) *storage.Storage {
	t.Helper()
	kv, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "core.db"))
	require.NoError(t, err)
	st := storage.New(kv)
	t.Cleanup(func() { st.Close() })
	return st
}

func newContext(store *storage.Storage) (*command.Context, *recorder) {
	rec := &recorder{}
	return &command.Context{
		GuildID:   "g1",
		ChannelID: "c1",
		Author:    &discordgo.User{ID: "u1", Username: "someone"},
		Prefix:    "!",
		Storage:   store,
		Reply:     rec,
		Logger:    zerolog.Nop(),
	}, rec
}

func newRegistry(t *testing.T, led *ledger.Ledger) *command.Registry {
	t.Helper()
	reg := command.NewRegistry()
	require.NoError(t, reg.RegisterAll(Commands(reg, led)...))
	return reg
}

func run(t *testing.T, reg *command.Registry, c *command.Context, name string, args ...any) {
	t.Helper()
	e, ok := reg.Lookup(name)
	require.True(t, ok, "command %s", name)
	require.NoError(t, e.Run(c, resolve.Args(args)))
}

func embedText(e *discordgo.MessageEmbed) string {
	var sb strings.Builder
	sb.WriteString("# " + e.Title + "\n")
	if e.Description != "" {
		sb.WriteString(e.Description + "\n")
	}
	for _, f := range e.Fields {
		sb.WriteString("\n## " + f.Name + "\n" + f.Value + "\n")
	}
	if e.Footer != nil {
		sb.WriteString("\n-- " + e.Footer.Text + "\n")
	}
	return sb.String()
}

func TestCommandsRegister(t *testing.T) {
	reg := newRegistry(t, ledger.New(nil, nil))
	var names []string
	for _, e := range reg.All() {
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{"errors", "help", "history", "permission", "ping"}, names)

	e, ok := reg.Lookup("cmd-log")
	require.True(t, ok)
	assert.Equal(t, "history", e.Name)
}

func TestPing(t *testing.T) {
	reg := newRegistry(t, ledger.New(nil, nil))
	c, rec := newContext(nil)
	run(t, reg, c, "ping")
	require.Len(t, rec.embeds, 1)
	assert.Equal(t, "Pong!", rec.embeds[0].Title)
	assert.Equal(t, command.EmbedColor, rec.embeds[0].Color)
}

func TestHelp(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	reg := newRegistry(t, ledger.New(nil, nil))

	t.Run("list", func(t *testing.T) {
		c, rec := newContext(nil)
		run(t, reg, c, "help")
		require.Len(t, rec.embeds, 1)
		g.Assert(t, "help_list", []byte(embedText(rec.embeds[0])))
	})

	t.Run("detail", func(t *testing.T) {
		c, rec := newContext(nil)
		run(t, reg, c, "commands", "permission")
		require.Len(t, rec.embeds, 1)
		g.Assert(t, "help_detail", []byte(embedText(rec.embeds[0])))
	})

	t.Run("unknown", func(t *testing.T) {
		c, rec := newContext(nil)
		run(t, reg, c, "help", "nope")
		assert.Equal(t, []string{"Unknown command `nope`."}, rec.messages)
	})
}

func TestPermission(t *testing.T) {
	store := newStore(t)
	reg := newRegistry(t, ledger.New(store, nil))
	target := &discordgo.Member{User: &discordgo.User{ID: "42"}}

	c, rec := newContext(store)
	run(t, reg, c, "permission", "list")
	run(t, reg, c, "permission", "allow", target)
	run(t, reg, c, "permission", "allow", target)
	run(t, reg, c, "permission", "list")
	run(t, reg, c, "permission", "revoke", target)
	run(t, reg, c, "permission", "revoke", target)

	assert.Equal(t, []string{
		"No trusted users.",
		"<@42> is now trusted.",
		"<@42> is now trusted.",
		"Trusted users: <@42>",
		"<@42> is no longer trusted.",
		"<@42> was not trusted.",
	}, rec.messages)

	ids, ok, err := store.StringSet(context.Background(), TrustedKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, ids)
}

func TestPermissionNeedsStore(t *testing.T) {
	reg := newRegistry(t, ledger.New(nil, nil))
	c, rec := newContext(nil)
	run(t, reg, c, "permission", "list")
	assert.Equal(t, []string{needsDatabase}, rec.messages)

	e, _ := reg.Lookup("permission")
	require.NotNil(t, e.Security)
	assert.Equal(t, []int64{discordgo.PermissionAdministrator}, e.Security.Permissions.User)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	reg := newRegistry(t, ledger.New(store, nil))
	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(t, store.AppendCommandHistory(ctx, "g1", storage.CommandHistoryRecord{
		ChannelName: "general", Username: "alice", Command: "ping", Datetime: at,
	}))
	require.NoError(t, store.AppendCommandHistory(ctx, "g1", storage.CommandHistoryRecord{
		ChannelName: "general", Username: "bob", Command: "help", Args: []string{"ping"}, Slash: true, Datetime: at.Add(time.Minute),
	}))

	c, rec := newContext(store)
	run(t, reg, c, "history")
	require.Len(t, rec.messages, 1)
	out := rec.messages[0]
	assert.True(t, strings.HasPrefix(out, "```md\n"))
	assert.True(t, strings.HasSuffix(out, "```"))
	bob := strings.Index(out, "/help ping")
	alice := strings.Index(out, "!ping")
	require.Positive(t, bob)
	require.Positive(t, alice)
	assert.Less(t, bob, alice, "newest first")

	c, rec = newContext(store)
	c.GuildID = "other"
	run(t, reg, c, "history")
	assert.Equal(t, []string{"No commands recorded yet."}, rec.messages)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ids := []string{"aaaa1111", "bbbb2222"}
	n := 0
	led := ledger.New(store, nil,
		ledger.WithLogger(zerolog.Nop()),
		ledger.WithIDGenerator(func() string { id := ids[n%len(ids)]; n++; return id }),
	)
	reg := newRegistry(t, led)

	_, err := led.Record(ctx, errors.New("first failure"), &ledger.Snapshot{AuthorID: "u1", AuthorName: "someone", Content: "!boom"}, &ledger.CommandInfo{Name: "boom"})
	require.NoError(t, err)
	_, err = led.Record(ctx, errors.New("second failure"), nil, nil)
	require.NoError(t, err)

	c, rec := newContext(store)
	run(t, reg, c, "errors", "list")
	require.Len(t, rec.embeds, 1)
	assert.Equal(t, "Errors (2)", rec.embeds[0].Title)
	assert.Contains(t, rec.embeds[0].Description, "`#aaaa1111`")
	assert.Contains(t, rec.embeds[0].Description, "`boom`: first failure")

	run(t, reg, c, "errors", "show", "#aaaa1111")
	require.Len(t, rec.embeds, 2)
	assert.Equal(t, "Error #aaaa1111", rec.embeds[1].Title)
	assert.Contains(t, rec.embeds[1].Description, "first failure")

	run(t, reg, c, "errors", "remove", "aaaa1111")
	run(t, reg, c, "errors", "show", "aaaa1111")
	run(t, reg, c, "errors", "clear")
	run(t, reg, c, "errors", "list")
	assert.Equal(t, []string{
		"Removed error **#aaaa1111**.",
		"No error with ID **#aaaa1111**.",
		"Removed 1 errors.",
		"No errors recorded.",
	}, rec.messages)
}

func TestErrorsNeedsStore(t *testing.T) {
	reg := newRegistry(t, ledger.New(nil, nil))
	c, rec := newContext(nil)
	run(t, reg, c, "errors", "list")
	assert.Equal(t, []string{needsDatabase}, rec.messages)
}

func TestGuildScopedCommandsRefuseDirectMessages(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	led := ledger.New(store, nil, ledger.WithLogger(zerolog.Nop()))
	reg := newRegistry(t, led)
	_, err := led.Record(ctx, errors.New("kept"), nil, nil)
	require.NoError(t, err)

	for _, call := range [][]any{
		{"errors", "clear"},
		{"errors", "list"},
		{"permission", "list"},
		{"history"},
	} {
		c, rec := newContext(store)
		c.GuildID = ""
		run(t, reg, c, call[0].(string), call[1:]...)
		assert.Equal(t, []string{"You must be in a guild to use this command."}, rec.messages, "%v", call)
		assert.Empty(t, rec.embeds)
	}

	recs, err := led.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
