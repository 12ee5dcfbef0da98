package argument

import (
	"encoding/json"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsComplete(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want bool
	}{
		{"nil", nil, false},
		{"scalar", Scalar(String, "text", "Some text", true), true},
		{"missing kind", &Node{Name: "x", Description: "d"}, false},
		{"missing name", Scalar(Integer, "", "d", false), false},
		{"missing description", Scalar(Integer, "n", "", false), false},
		{"empty group", Sub("list", "List things"), true},
		{"group with complete children", Sub("user", "User", Scalar(User, "target", "Target", true)), true},
		{"group with incomplete grandchild", Group("perm", "Perm", Sub("user", "User", Scalar(User, "target", "", true))), false},
		{"choice without name", Scalar(String, "mode", "Mode", false).WithChoices(Choice{Value: "x"}), false},
		{"choice without value", Scalar(String, "mode", "Mode", false).WithChoices(Choice{Name: "fast"}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsComplete(tt.node))
		})
	}
}

func TestSerializeIncompleteFails(t *testing.T) {
	n := Sub("user", "User", Scalar(User, "target", "", true))

	_, err := Serialize(n)
	require.ErrorIs(t, err, ErrSchemaIncomplete)

	_, err = Options([]*Node{Scalar(String, "ok", "fine", false), n})
	require.ErrorIs(t, err, ErrSchemaIncomplete)
}

func TestSerializeOmitsFalseRequired(t *testing.T) {
	s, err := Serialize(Sub("user", "User",
		Scalar(User, "target", "Target", true),
		Scalar(Channel, "channel", "Channel", false),
	))
	require.NoError(t, err)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": 1, "name": "user", "description": "User",
		"options": [
			{"type": 6, "name": "target", "description": "Target", "required": true},
			{"type": 7, "name": "channel", "description": "Channel"}
		]
	}`, string(raw))
}

func TestSerializeChoiceValueDefaultsToName(t *testing.T) {
	n := Scalar(String, "mode", "Mode", false).WithChoices(Choice{Name: "fast"}, Choice{Name: "slow", Value: "s"})

	s, err := Serialize(n)
	require.NoError(t, err)
	assert.Equal(t, []SerializedChoice{{Name: "fast", Value: "fast"}, {Name: "slow", Value: "s"}}, s.Choices)
	assert.Nil(t, n.Choices[0].Value, "serialization must not mutate the schema")
}

func TestOptionsConvertToDiscord(t *testing.T) {
	opts, err := Options([]*Node{
		Group("role", "Role settings", Sub("add", "Add a role", Scalar(Role, "role", "The role", true))),
	})
	require.NoError(t, err)
	require.Len(t, opts, 1)

	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommandGroup, opts[0].Type)
	require.Len(t, opts[0].Options, 1)
	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, opts[0].Options[0].Type)
	leaf := opts[0].Options[0].Options[0]
	assert.Equal(t, discordgo.ApplicationCommandOptionRole, leaf.Type)
	assert.True(t, leaf.Required)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate([]*Node{
		Sub("user", "User", Scalar(User, "target", "Target", true)),
		Sub("role", "Role", Scalar(Role, "target", "Target", true)),
	}))

	err := Validate([]*Node{Scalar(String, "a", "A", false), Scalar(String, "a", "A again", false)})
	assert.ErrorContains(t, err, "duplicate name")

	err = Validate([]*Node{Scalar(String, "Upper", "A", false)})
	assert.ErrorContains(t, err, "lowercase")

	err = Validate([]*Node{Sub("user", "User", &Node{Kind: User, Name: "target"})})
	require.ErrorIs(t, err, ErrSchemaIncomplete)
	assert.ErrorContains(t, err, "user.target")
}

func TestKind(t *testing.T) {
	assert.True(t, Subcommand.IsGroup())
	assert.True(t, SubcommandGroup.IsGroup())
	assert.False(t, String.IsGroup())
	assert.True(t, Role.IsEntity())
	assert.False(t, Invalid.Valid())
	assert.Equal(t, "channel", Channel.String())
	assert.Equal(t, int(discordgo.ApplicationCommandOptionRole), int(Role))
}
