package argument

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Serialized is the wire form of a node. Required is dropped when false so an
// absent flag and an explicit false compare equal.
type Serialized struct {
	Type        Kind               `json:"type"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Required    bool               `json:"required,omitempty"`
	Options     []Serialized       `json:"options,omitempty"`
	Choices     []SerializedChoice `json:"choices,omitempty"`
}

// SerializedChoice is the wire form of a choice.
type SerializedChoice struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Serialize converts n to its wire form. It fails with ErrSchemaIncomplete if
// any node in the tree is incomplete.
func Serialize(n *Node) (Serialized, error) {
	if !IsComplete(n) {
		return Serialized{}, fmt.Errorf("%s: %w", nodePath("", n, 0), ErrSchemaIncomplete)
	}
	out := Serialized{Type: n.Kind, Name: n.Name, Description: n.Description}
	if n.Kind.IsGroup() {
		for _, c := range n.Children {
			s, err := Serialize(c)
			if err != nil {
				return Serialized{}, fmt.Errorf("%s: %w", n.Name, err)
			}
			out.Options = append(out.Options, s)
		}
		return out, nil
	}
	out.Required = n.Required
	for _, c := range n.Choices {
		v := c.Value
		if v == nil {
			v = c.Name
		}
		out.Choices = append(out.Choices, SerializedChoice{Name: c.Name, Value: v})
	}
	return out, nil
}

// SerializeAll serializes every node of a schema in order.
func SerializeAll(nodes []*Node) ([]Serialized, error) {
	out := make([]Serialized, 0, len(nodes))
	for _, n := range nodes {
		s, err := Serialize(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Discord converts the serialized node to a discordgo command option.
func (s Serialized) Discord() *discordgo.ApplicationCommandOption {
	opt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionType(s.Type),
		Name:        s.Name,
		Description: s.Description,
		Required:    s.Required,
	}
	for _, o := range s.Options {
		opt.Options = append(opt.Options, o.Discord())
	}
	for _, c := range s.Choices {
		opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{Name: c.Name, Value: c.Value})
	}
	return opt
}

// Options serializes a schema straight into discordgo command options.
func Options(nodes []*Node) ([]*discordgo.ApplicationCommandOption, error) {
	ser, err := SerializeAll(nodes)
	if err != nil {
		return nil, err
	}
	opts := make([]*discordgo.ApplicationCommandOption, 0, len(ser))
	for _, s := range ser {
		opts = append(opts, s.Discord())
	}
	return opts, nil
}
