package resolve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"guildkit/internal/argument"
	"guildkit/internal/config"

	"github.com/bwmarrin/discordgo"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGuild struct {
	members  map[string]*discordgo.Member
	channels map[string]*discordgo.Channel
	roles    map[string]*discordgo.Role
	lookups  int
}

func newFakeGuild() *fakeGuild {
	return &fakeGuild{
		members:  map[string]*discordgo.Member{"123": {User: &discordgo.User{ID: "123", Username: "ann"}}},
		channels: map[string]*discordgo.Channel{"777": {ID: "777", Name: "general"}},
		roles:    map[string]*discordgo.Role{"555": {ID: "555", Name: "mods"}},
	}
}

func (f *fakeGuild) Member(_ context.Context, _, id string) (*discordgo.Member, error) {
	f.lookups++
	if m, ok := f.members[id]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("unknown member %s", id)
}

func (f *fakeGuild) Channel(_ context.Context, _, id string) (*discordgo.Channel, error) {
	f.lookups++
	return f.channels[id], nil
}

func (f *fakeGuild) Role(_ context.Context, _, id string) (*discordgo.Role, error) {
	f.lookups++
	if r, ok := f.roles[id]; ok {
		return r, nil
	}
	return nil, errors.New("404 Not Found")
}

func permissionSchema() []*argument.Node {
	return []*argument.Node{
		argument.Sub("user", "Manage user permissions",
			argument.Scalar(argument.User, "target", "The member", true),
			argument.Scalar(argument.Channel, "channel", "Limit to a channel", false),
		),
		argument.Sub("role", "Manage role permissions",
			argument.Scalar(argument.Role, "target", "The role", true),
		),
	}
}

func TestTextSubcommandWithMember(t *testing.T) {
	g := newFakeGuild()
	r := New(g)

	args, rej := r.Text(context.Background(), "g1", permissionSchema(), []string{"user", "<@123>"})
	require.Nil(t, rej)
	require.Len(t, args, 2)
	assert.Equal(t, "user", args.String(0))
	assert.Equal(t, "123", args.Member(1).User.ID)
}

func TestTextSubcommandMissingTarget(t *testing.T) {
	r := New(newFakeGuild())

	_, rej := r.Text(context.Background(), "g1", permissionSchema(), []string{"user"})
	require.NotNil(t, rej)
	assert.Empty(t, rej.Subcommands)
	require.Len(t, rej.Options, 1)
	assert.Equal(t, "target", rej.Options[0].Name)
	assert.True(t, rej.FirstOnly)
	assert.Equal(t, MissingRequiredArgument, rej.Reason)
}

func TestTextRequiredIntegerCoercionFailure(t *testing.T) {
	r := New(nil)
	schema := []*argument.Node{argument.Scalar(argument.Integer, "n", "A number", true)}

	_, rej := r.Text(context.Background(), "", schema, []string{"abc"})
	require.NotNil(t, rej)
	assert.Equal(t, TypeCoercionFailure, rej.Reason)
	require.Len(t, rej.Options, 1)
	assert.Equal(t, "n", rej.Options[0].Name)

	for _, bad := range []string{"NaN", "Inf", "-Inf", "1e400"} {
		_, rej := r.Text(context.Background(), "", schema, []string{bad})
		assert.NotNil(t, rej, bad)
	}

	args, rej := r.Text(context.Background(), "", schema, []string{"-4.5"})
	require.Nil(t, rej)
	assert.Equal(t, -4.5, args.Number(0))
}

func TestTextMissingRequiredScalar(t *testing.T) {
	r := New(nil)
	schema := []*argument.Node{argument.Scalar(argument.String, "text", "Some text", true)}

	_, rej := r.Text(context.Background(), "", schema, nil)
	require.NotNil(t, rej)
	require.Len(t, rej.Options, 1)
	assert.Equal(t, "text", rej.Options[0].Name)
	assert.Empty(t, rej.Subcommands)
}

func TestTextOptionalOmitted(t *testing.T) {
	r := New(nil)
	schema := []*argument.Node{argument.Scalar(argument.String, "text", "Some text", false)}

	args, rej := r.Text(context.Background(), "", schema, nil)
	require.Nil(t, rej)
	assert.Empty(t, args)
}

func TestTextEmptySchemaIgnoresTokens(t *testing.T) {
	args, rej := New(nil).Text(context.Background(), "", nil, []string{"extra", "tokens"})
	require.Nil(t, rej)
	assert.Empty(t, args)
}

func TestTextSubcommandNameIsLowercased(t *testing.T) {
	r := New(newFakeGuild())
	for _, tok := range []string{"role", "ROLE", "RoLe"} {
		args, rej := r.Text(context.Background(), "g1", permissionSchema(), []string{tok, "555"})
		require.Nil(t, rej, tok)
		assert.Equal(t, "role", args[0], tok)
		assert.Equal(t, "mods", args.Role(1).Name)
	}
}

func TestTextMatchesGroupAnywhereInList(t *testing.T) {
	schema := []*argument.Node{
		argument.Scalar(argument.String, "query", "Search text", false),
		argument.Sub("list", "List entries"),
	}
	args, rej := New(nil).Text(context.Background(), "", schema, []string{"LIST"})
	require.Nil(t, rej)
	assert.Equal(t, Args{"list"}, args)
}

func TestTextOptionalSkipReoffersToken(t *testing.T) {
	schema := []*argument.Node{
		argument.Scalar(argument.Integer, "count", "How many", false),
		argument.Scalar(argument.Boolean, "loud", "Shout it", true),
	}
	r := New(nil)

	args, rej := r.Text(context.Background(), "", schema, []string{"yes"})
	require.Nil(t, rej)
	assert.Equal(t, Args{true}, args)

	args, rej = r.Text(context.Background(), "", schema, []string{"3", "off"})
	require.Nil(t, rej)
	assert.Equal(t, Args{3.0, false}, args)

	_, rej = r.Text(context.Background(), "", schema, []string{"maybe"})
	require.NotNil(t, rej)
	assert.Equal(t, "loud", rej.Options[0].Name)
}

func TestTextBooleanIsCaseSensitive(t *testing.T) {
	schema := []*argument.Node{argument.Scalar(argument.Boolean, "flag", "A flag", true)}
	r := New(nil)
	for tok, want := range map[string]bool{"true": true, "on": true, "yes": true, "false": false, "off": false, "no": false} {
		args, rej := r.Text(context.Background(), "", schema, []string{tok})
		require.Nil(t, rej, tok)
		assert.Equal(t, want, args.Bool(0), tok)
	}
	_, rej := r.Text(context.Background(), "", schema, []string{"TRUE"})
	assert.NotNil(t, rej)
}

func TestTextUnresolvableEntity(t *testing.T) {
	r := New(newFakeGuild())

	_, rej := r.Text(context.Background(), "g1", permissionSchema(), []string{"user", "<@999>"})
	require.NotNil(t, rej)
	assert.Equal(t, UnresolvableEntityReference, rej.Reason)

	_, rej = r.Text(context.Background(), "g1", permissionSchema(), []string{"user", "someone"})
	require.NotNil(t, rej)
	assert.Equal(t, TypeCoercionFailure, rej.Reason)
}

func TestTextOptionalChannelAfterMember(t *testing.T) {
	r := New(newFakeGuild())

	args, rej := r.Text(context.Background(), "g1", permissionSchema(), []string{"user", "123", "<#777>"})
	require.Nil(t, rej)
	require.Len(t, args, 3)
	assert.Equal(t, "general", args.Channel(2).Name)
}

func TestTextChoices(t *testing.T) {
	schema := []*argument.Node{
		argument.Scalar(argument.String, "mode", "Mode", true).WithChoices(argument.Choice{Name: "fast"}, argument.Choice{Name: "slow"}),
	}
	r := New(nil)

	args, rej := r.Text(context.Background(), "", schema, []string{"slow"})
	require.Nil(t, rej)
	assert.Equal(t, "slow", args.String(0))

	_, rej = r.Text(context.Background(), "", schema, []string{"medium"})
	assert.NotNil(t, rej)
}

func TestTextIsDeterministic(t *testing.T) {
	r := New(newFakeGuild())
	tokens := []string{"user", "<@!123>", "777"}
	first, rej := r.Text(context.Background(), "g1", permissionSchema(), tokens)
	require.Nil(t, rej)
	for i := 0; i < 5; i++ {
		again, rej := r.Text(context.Background(), "g1", permissionSchema(), tokens)
		require.Nil(t, rej)
		assert.Equal(t, first, again)
	}
	assert.Len(t, first, 3)
}

func TestFirstOnlyTruncatesOptions(t *testing.T) {
	schema := []*argument.Node{
		argument.Sub("set", "Set values",
			argument.Scalar(argument.String, "key", "Key", true),
			argument.Scalar(argument.String, "value", "Value", true),
		),
	}
	_, rej := New(nil).Text(context.Background(), "", schema, []string{"set"})
	require.NotNil(t, rej)
	require.Len(t, rej.Options, 1)
	assert.Equal(t, "key", rej.Options[0].Name)

	top := []*argument.Node{
		argument.Scalar(argument.String, "key", "Key", true),
		argument.Scalar(argument.String, "value", "Value", true),
	}
	_, rej = New(nil).Text(context.Background(), "", top, nil)
	require.NotNil(t, rej)
	assert.Len(t, rej.Options, 2)
}

func TestMentionToID(t *testing.T) {
	tests := map[string]string{
		"<@123>":  "123",
		"<@!123>": "123",
		"<#456>":  "456",
		"<@&789>": "789",
		"42":      "42",
	}
	for in, want := range tests {
		got, ok := MentionToID(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "abc", "<@abc>", "<@>", "12a"} {
		_, ok := MentionToID(bad)
		assert.False(t, ok, bad)
	}
}

func TestStructuredNestedRole(t *testing.T) {
	r := New(newFakeGuild())
	opts := []Option{{Name: "role", Options: []Option{{Name: "target", Value: "555"}}}}

	args, err := r.Structured(context.Background(), "g1", permissionSchema(), opts)
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, "role", args[0])
	assert.Equal(t, "555", args.Role(1).ID)
}

func TestStructuredSubcommandSharingOptionName(t *testing.T) {
	schema := []*argument.Node{
		argument.Sub("role", "Role settings", argument.Scalar(argument.Role, "role", "The role", true)),
	}
	opts := []Option{{Name: "role", Options: []Option{{Name: "role", Value: "555"}}}}

	args, err := New(newFakeGuild()).Structured(context.Background(), "g1", schema, opts)
	require.NoError(t, err)
	assert.Equal(t, "role", args[0])
	assert.Equal(t, "mods", args.Role(1).Name)
}

func TestStructuredSingleScalarIsNotASubcommand(t *testing.T) {
	schema := []*argument.Node{argument.Scalar(argument.Integer, "n", "A number", true)}

	args, err := New(nil).Structured(context.Background(), "", schema, []Option{{Name: "n", Value: float64(7)}})
	require.NoError(t, err)
	assert.Equal(t, Args{7.0}, args)
}

func TestStructuredFlatFollowsSchemaOrder(t *testing.T) {
	schema := []*argument.Node{
		argument.Scalar(argument.String, "text", "Text", true),
		argument.Scalar(argument.Boolean, "loud", "Loud", false),
		argument.Scalar(argument.Channel, "where", "Where", false),
	}
	opts := []Option{{Name: "where", Value: "777"}, {Name: "text", Value: "hi"}}

	args, err := New(newFakeGuild()).Structured(context.Background(), "g1", schema, opts)
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, "hi", args.String(0))
	assert.Equal(t, "general", args.Channel(1).Name)
}

func TestStructuredErrors(t *testing.T) {
	r := New(newFakeGuild())

	_, err := r.Structured(context.Background(), "g1", permissionSchema(), []Option{{Name: "role", Options: []Option{{Name: "target", Value: "1"}}}})
	assert.ErrorIs(t, err, ErrUnresolvable)

	schema := []*argument.Node{argument.Scalar(argument.Boolean, "flag", "Flag", true)}
	_, err = r.Structured(context.Background(), "", schema, []Option{{Name: "flag", Value: "yes"}})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = r.Structured(context.Background(), "", schema, []Option{{Name: "other", Value: true}, {Name: "flag", Value: true}})
	assert.ErrorIs(t, err, ErrUnknownOption)
}

func TestFromInteraction(t *testing.T) {
	in := []*discordgo.ApplicationCommandInteractionDataOption{{
		Name: "role",
		Type: discordgo.ApplicationCommandOptionSubCommand,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "target", Type: discordgo.ApplicationCommandOptionRole, Value: "555"},
		},
	}}
	assert.Equal(t, []Option{{Name: "role", Options: []Option{{Name: "target", Value: "555"}}}}, FromInteraction(in))
}

func helpText(h Help) []byte {
	return []byte(h.Title + "\n" + h.Description() + "\n" + h.ExampleLine + "\n")
}

func TestHelpRendering(t *testing.T) {
	msgs := config.DefaultMessages()
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	r := New(newFakeGuild())

	t.Run("subcommands", func(t *testing.T) {
		_, rej := r.Text(context.Background(), "g1", permissionSchema(), nil)
		require.NotNil(t, rej)
		h := rej.Help(msgs, ".permission <user|role> <target>", ".permission user @someone")
		g.Assert(t, "help_subcommands", helpText(h))
	})

	t.Run("options", func(t *testing.T) {
		_, rej := r.Text(context.Background(), "g1", permissionSchema(), []string{"user"})
		require.NotNil(t, rej)
		h := rej.Help(msgs, ".permission user <target> [channel]", ".permission user @someone")
		g.Assert(t, "help_options", helpText(h))
	})

	t.Run("mixed", func(t *testing.T) {
		schema := []*argument.Node{
			argument.Sub("list", "List entries"),
			argument.Scalar(argument.String, "query", "Search text", true),
		}
		_, rej := r.Text(context.Background(), "", schema, nil)
		require.NotNil(t, rej)
		h := rej.Help(msgs, ".search list", ".search list")
		g.Assert(t, "help_mixed", helpText(h))

		embed := h.Embed(0xb01e66)
		assert.Equal(t, "Wrong arguments!", embed.Title)
		assert.Equal(t, "Example: .search list", embed.Footer.Text)

		args, rej := r.Text(context.Background(), "", schema, []string{"list"})
		require.Nil(t, rej)
		assert.Equal(t, Args{"list"}, args)
	})
}
