package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Messages holds every user-facing template. Positional placeholders {0},
// {1}, ... are substituted by Format.
type Messages struct {
	ErrorWithDatabase        string            `yaml:"error_with_database"`
	ErrorWithoutDatabase     string            `yaml:"error_without_database"`
	BotNoPermissions         string            `yaml:"bot_no_permissions"`
	UserNoPermissions        string            `yaml:"user_no_permissions"`
	GuildOnly                string            `yaml:"guild_only"`
	WrongArguments           string            `yaml:"wrong_arguments"`
	Usage                    string            `yaml:"usage"`
	Example                  string            `yaml:"example"`
	NeedsToBe                string            `yaml:"needs_to_be"`
	ChooseBetweenSubcommands string            `yaml:"choose_between_subcommands"`
	OrOtherOptions           string            `yaml:"or_other_options"`
	ChooseBetweenOptions     string            `yaml:"choose_between_options"`
	Types                    map[string]string `yaml:"types"`
}

// DefaultMessages returns the built-in English templates.
func DefaultMessages() Messages {
	return Messages{
		ErrorWithDatabase:        "**Error**\nAn error occurred while trying to run `{0}`.\nThis error has been reported with ID **#{1}**",
		ErrorWithoutDatabase:     "An error occurred while trying to run this command. The error has been reported!",
		BotNoPermissions:         "Can't run this command. I'm missing the following permissions. {0}",
		UserNoPermissions:        "Can't run this command. You're missing the following permissions. {0}",
		GuildOnly:                "You must be in a guild to use this command.",
		WrongArguments:           "Wrong arguments!",
		Usage:                    "Usage",
		Example:                  "Example",
		NeedsToBe:                "needs to be {0}",
		ChooseBetweenSubcommands: "You have to choose between the following subcommands.",
		OrOtherOptions:           "Or between the other options.",
		ChooseBetweenOptions:     "You have to choose between the following options.",
		Types: map[string]string{
			"string":  "text",
			"integer": "a valid number",
			"boolean": "yes/no",
			"user":    "a user (mention or ID)",
			"channel": "a channel (mention or ID)",
			"role":    "a role (mention or ID)",
		},
	}
}

// LoadMessages returns the defaults overlaid with any non-empty template from
// the YAML file at path. An empty path returns the defaults.
func LoadMessages(path string) (Messages, error) {
	msgs := DefaultMessages()
	if path == "" {
		return msgs, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return msgs, fmt.Errorf("read messages file: %w", err)
	}
	var override Messages
	if err := yaml.Unmarshal(data, &override); err != nil {
		return msgs, fmt.Errorf("parse messages file %s: %w", path, err)
	}
	msgs.merge(override)
	return msgs, nil
}

func (m *Messages) merge(o Messages) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&m.ErrorWithDatabase, o.ErrorWithDatabase)
	set(&m.ErrorWithoutDatabase, o.ErrorWithoutDatabase)
	set(&m.BotNoPermissions, o.BotNoPermissions)
	set(&m.UserNoPermissions, o.UserNoPermissions)
	set(&m.GuildOnly, o.GuildOnly)
	set(&m.WrongArguments, o.WrongArguments)
	set(&m.Usage, o.Usage)
	set(&m.Example, o.Example)
	set(&m.NeedsToBe, o.NeedsToBe)
	set(&m.ChooseBetweenSubcommands, o.ChooseBetweenSubcommands)
	set(&m.OrOtherOptions, o.OrOtherOptions)
	set(&m.ChooseBetweenOptions, o.ChooseBetweenOptions)
	for k, v := range o.Types {
		if v != "" {
			m.Types[k] = v
		}
	}
}

// TypeLabel returns the human label for an argument kind name.
func (m Messages) TypeLabel(kind string) string {
	if l, ok := m.Types[kind]; ok {
		return l
	}
	return kind
}

// Format replaces {0}, {1}, ... in tmpl with args in order.
func Format(tmpl string, args ...any) string {
	if len(args) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(args)*2)
	for i, a := range args {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", fmt.Sprint(a))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Template replaces %PREFIX% and %CMD% in a usage or example string.
func Template(s, prefix, name string) string {
	return strings.NewReplacer("%PREFIX%", prefix, "%CMD%", name).Replace(s)
}
