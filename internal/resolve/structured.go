package resolve

import (
	"context"
	"encoding/json"
	"fmt"

	"guildkit/internal/argument"

	"github.com/bwmarrin/discordgo"
)

// Option is one node of a slash-command option tree.
type Option struct {
	Name    string
	Value   any
	Options []Option
}

// FromInteraction converts discordgo interaction options.
func FromInteraction(opts []*discordgo.ApplicationCommandInteractionDataOption) []Option {
	if len(opts) == 0 {
		return nil
	}
	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		if o == nil {
			continue
		}
		out = append(out, Option{Name: o.Name, Value: o.Value, Options: FromInteraction(o.Options)})
	}
	return out
}

// Structured resolves an interaction option tree. The platform has already
// validated the shape, so any mismatch is reported as an error rather than a
// Rejection.
func (r *Resolver) Structured(ctx context.Context, guildID string, schema []*argument.Node, opts []Option) (Args, error) {
	if len(opts) == 1 {
		if n := find(schema, opts[0].Name); n != nil && n.Kind.IsGroup() {
			sub, err := r.Structured(ctx, guildID, n.Children, opts[0].Options)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", n.Name, err)
			}
			return append(Args{n.Name}, sub...), nil
		}
	}

	byName := make(map[string]Option, len(opts))
	for _, o := range opts {
		n := find(schema, o.Name)
		if n == nil || n.Kind.IsGroup() {
			return nil, fmt.Errorf("%w %q", ErrUnknownOption, o.Name)
		}
		byName[o.Name] = o
	}

	out := Args{}
	for _, n := range schema {
		o, ok := byName[n.Name]
		if !ok || n.Kind.IsGroup() {
			continue
		}
		v, err := r.value(ctx, guildID, n, o.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", n.Name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *Resolver) value(ctx context.Context, guildID string, n *argument.Node, raw any) (any, error) {
	switch n.Kind {
	case argument.String:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case argument.Integer:
		if f, ok := toFloat(raw); ok {
			return f, nil
		}
	case argument.Boolean:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case argument.User, argument.Channel, argument.Role:
		id, ok := raw.(string)
		if !ok {
			break
		}
		return r.entity(ctx, guildID, n.Kind, id)
	}
	return nil, fmt.Errorf("%w: want %s, got %T", ErrTypeMismatch, n.Kind, raw)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

func find(schema []*argument.Node, name string) *argument.Node {
	for _, n := range schema {
		if n.Name == name {
			return n
		}
	}
	return nil
}
