package resolve

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"guildkit/internal/argument"

	"github.com/bwmarrin/discordgo"
)

var (
	truthy = map[string]bool{"true": true, "on": true, "yes": true}
	falsy  = map[string]bool{"false": true, "off": true, "no": true}
)

// Text resolves whitespace-separated tokens against schema. Tokens left over
// after the schema is exhausted are ignored. On failure the returned Rejection
// describes what the caller still has to supply.
func (r *Resolver) Text(ctx context.Context, guildID string, schema []*argument.Node, tokens []string) (Args, *Rejection) {
	clean := tokens[:0:0]
	for _, t := range tokens {
		if t != "" {
			clean = append(clean, t)
		}
	}
	return r.text(ctx, guildID, schema, clean, false)
}

func (r *Resolver) text(ctx context.Context, guildID string, schema []*argument.Node, tokens []string, firstOnly bool) (Args, *Rejection) {
	if len(schema) == 0 {
		return Args{}, nil
	}
	head := schema[0]

	if len(tokens) == 0 {
		if head.Kind.IsGroup() || head.Required {
			return nil, reject(schema, firstOnly, MissingRequiredArgument, "")
		}
		return Args{}, nil
	}
	token := tokens[0]

	for _, n := range schema {
		if !n.Kind.IsGroup() || !strings.EqualFold(n.Name, token) {
			continue
		}
		focus := len(n.Children) > 0 && !n.Children[0].Kind.IsGroup()
		sub, rej := r.text(ctx, guildID, n.Children, tokens[1:], focus)
		if rej != nil {
			return nil, rej
		}
		return append(Args{strings.ToLower(n.Name)}, sub...), nil
	}

	if head.Kind.IsGroup() {
		return nil, reject(schema, firstOnly, MissingRequiredArgument, token)
	}

	v, reason := r.coerce(ctx, guildID, head, token)
	if reason == "" {
		rest, rej := r.text(ctx, guildID, schema[1:], tokens[1:], firstOnly)
		if rej != nil {
			return nil, rej
		}
		return append(Args{v}, rest...), nil
	}
	if head.Required {
		return nil, reject(schema, firstOnly, reason, token)
	}
	// Optional node did not accept the token: drop the node, offer the same
	// token to the next one.
	return r.text(ctx, guildID, schema[1:], tokens, firstOnly)
}

// coerce converts token to the value type of n. A non-empty Reason means the
// token was not accepted.
func (r *Resolver) coerce(ctx context.Context, guildID string, n *argument.Node, token string) (any, Reason) {
	switch n.Kind {
	case argument.String:
		if !matchesChoice(n, token) {
			return nil, TypeCoercionFailure
		}
		return token, ""
	case argument.Integer:
		f, err := strconv.ParseFloat(token, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || !matchesChoice(n, f) {
			return nil, TypeCoercionFailure
		}
		return f, ""
	case argument.Boolean:
		switch {
		case truthy[token]:
			return true, ""
		case falsy[token]:
			return false, ""
		}
		return nil, TypeCoercionFailure
	case argument.User, argument.Channel, argument.Role:
		id, ok := MentionToID(token)
		if !ok {
			return nil, TypeCoercionFailure
		}
		v, err := r.entity(ctx, guildID, n.Kind, id)
		if err != nil {
			return nil, UnresolvableEntityReference
		}
		return v, ""
	}
	return nil, TypeCoercionFailure
}

func (r *Resolver) entity(ctx context.Context, guildID string, kind argument.Kind, id string) (any, error) {
	if r.entities == nil {
		return nil, fmt.Errorf("%s %s: %w", kind, id, ErrUnresolvable)
	}
	var (
		v   any
		err error
	)
	switch kind {
	case argument.User:
		var m *discordgo.Member
		m, err = r.entities.Member(ctx, guildID, id)
		if m != nil {
			v = m
		}
	case argument.Channel:
		var c *discordgo.Channel
		c, err = r.entities.Channel(ctx, guildID, id)
		if c != nil {
			v = c
		}
	case argument.Role:
		var rl *discordgo.Role
		rl, err = r.entities.Role(ctx, guildID, id)
		if rl != nil {
			v = rl
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %v", kind, id, ErrUnresolvable, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%s %s: %w", kind, id, ErrUnresolvable)
	}
	return v, nil
}

func matchesChoice(n *argument.Node, v any) bool {
	if len(n.Choices) == 0 {
		return true
	}
	want := describe(v)
	for _, c := range n.Choices {
		cv := c.Value
		if cv == nil {
			cv = c.Name
		}
		if describe(cv) == want {
			return true
		}
	}
	return false
}

// MentionToID strips mention decoration (<@, <@!, <#, <@&, >) and returns the
// bare numeric ID.
func MentionToID(s string) (string, bool) {
	id := s
	if strings.HasPrefix(id, "<") && strings.HasSuffix(id, ">") {
		id = strings.TrimSuffix(id, ">")
		for _, p := range []string{"<@!", "<@&", "<@", "<#"} {
			if strings.HasPrefix(id, p) {
				id = strings.TrimPrefix(id, p)
				break
			}
		}
	}
	if id == "" {
		return "", false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	return id, true
}

func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case *discordgo.Member:
		if x.User != nil {
			return x.User.ID
		}
		return ""
	case *discordgo.Channel:
		return x.ID
	case *discordgo.Role:
		return x.ID
	}
	return fmt.Sprint(v)
}
