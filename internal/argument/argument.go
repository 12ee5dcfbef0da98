// Package argument describes the tree-shaped argument schema of a command.
//
// A schema is an ordered list of nodes. Group nodes (subcommands and
// subcommand groups) name a branch and hold children; scalar nodes hold one
// value. Schemas are built once when a command is registered and are not
// mutated afterwards.
package argument

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaIncomplete is returned when an incomplete node is serialized or
// validated.
var ErrSchemaIncomplete = errors.New("argument schema incomplete")

// Kind discriminates argument nodes. The numeric values match Discord's
// application command option types so a Kind converts to the wire type with a
// plain cast.
type Kind int

const (
	Invalid Kind = iota
	Subcommand
	SubcommandGroup
	String
	Integer
	Boolean
	User
	Channel
	Role
)

var kindNames = map[Kind]string{
	Subcommand:      "subcommand",
	SubcommandGroup: "subcommand group",
	String:          "string",
	Integer:         "integer",
	Boolean:         "boolean",
	User:            "user",
	Channel:         "channel",
	Role:            "role",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k >= Subcommand && k <= Role
}

// IsGroup reports whether k names a branch rather than a value.
func (k Kind) IsGroup() bool {
	return k == Subcommand || k == SubcommandGroup
}

// IsEntity reports whether values of k are resolved against live guild state.
func (k Kind) IsEntity() bool {
	return k == User || k == Channel || k == Role
}

// Choice is one named value of an enumerated scalar.
type Choice struct {
	Name  string
	Value any
}

// Node is one entry of an argument schema.
type Node struct {
	Kind        Kind
	Name        string
	Description string
	// Required only applies to scalar kinds.
	Required bool
	Children []*Node
	Choices  []Choice
}

// Sub returns a subcommand node.
func Sub(name, description string, children ...*Node) *Node {
	return &Node{Kind: Subcommand, Name: name, Description: description, Children: children}
}

// Group returns a subcommand group node.
func Group(name, description string, children ...*Node) *Node {
	return &Node{Kind: SubcommandGroup, Name: name, Description: description, Children: children}
}

// Scalar returns a value node of the given kind.
func Scalar(kind Kind, name, description string, required bool) *Node {
	return &Node{Kind: kind, Name: name, Description: description, Required: required}
}

// WithChoices attaches choices to a scalar node and returns it.
func (n *Node) WithChoices(choices ...Choice) *Node {
	n.Choices = append(n.Choices, choices...)
	return n
}

// IsComplete reports whether n has a kind, name and description and, for
// group kinds, whether every child is complete.
func IsComplete(n *Node) bool {
	if n == nil || !n.Kind.Valid() || n.Name == "" || n.Description == "" {
		return false
	}
	if n.Kind.IsGroup() {
		for _, c := range n.Children {
			if !IsComplete(c) {
				return false
			}
		}
		return true
	}
	for _, c := range n.Choices {
		if c.Name == "" {
			return false
		}
	}
	return true
}

// Validate checks a whole schema: every node complete, names lowercase and
// unique among siblings.
func Validate(nodes []*Node) error {
	return validate(nodes, "")
}

func validate(nodes []*Node, path string) error {
	seen := make(map[string]struct{}, len(nodes))
	for i, n := range nodes {
		at := nodePath(path, n, i)
		if n == nil || !n.Kind.Valid() || n.Name == "" || n.Description == "" {
			return fmt.Errorf("%s: %w", at, ErrSchemaIncomplete)
		}
		if !n.Kind.IsGroup() && !IsComplete(n) {
			return fmt.Errorf("%s: choices: %w", at, ErrSchemaIncomplete)
		}
		if n.Name != strings.ToLower(n.Name) {
			return fmt.Errorf("%s: name must be lowercase", at)
		}
		if _, dup := seen[n.Name]; dup {
			return fmt.Errorf("%s: duplicate name", at)
		}
		seen[n.Name] = struct{}{}
		if n.Kind.IsGroup() {
			if err := validate(n.Children, at); err != nil {
				return err
			}
		}
	}
	return nil
}

func nodePath(parent string, n *Node, i int) string {
	name := fmt.Sprintf("#%d", i)
	if n != nil && n.Name != "" {
		name = n.Name
	}
	if parent == "" {
		return name
	}
	return parent + "." + name
}
