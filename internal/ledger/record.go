package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"guildkit/internal/argument"
	"guildkit/internal/fault"
	"guildkit/internal/security"
)

// Type separates command faults from process-level faults.
type Type string

const (
	TypeCommand   Type = ""
	TypeUncaught  Type = "uncaught"
	TypeUnhandled Type = "unhandled"
)

// Snapshot is the serializable part of the invocation that failed.
type Snapshot struct {
	InvocationID string `json:"invocation_id"`
	GuildID      string `json:"guild_id,omitempty"`
	GuildName    string `json:"guild_name,omitempty"`
	ChannelID    string `json:"channel_id,omitempty"`
	ChannelName  string `json:"channel_name,omitempty"`
	AuthorID     string `json:"author_id,omitempty"`
	AuthorName   string `json:"author_name,omitempty"`
	Content      string `json:"content,omitempty"`
	MessageURL   string `json:"message_url,omitempty"`
	Slash        bool   `json:"slash"`
}

// CommandInfo is the static metadata of the command that failed.
type CommandInfo struct {
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	Usage           string                `json:"usage"`
	Category        string                `json:"category"`
	Aliases         []string              `json:"aliases,omitempty"`
	Examples        []string              `json:"examples,omitempty"`
	Arguments       []argument.Serialized `json:"arguments,omitempty"`
	SlashEnabled    bool                  `json:"slash_enabled"`
	SlashVisibility string                `json:"slash_visibility"`
	Security        *security.Policy      `json:"security,omitempty"`
}

// ErrorInfo is a normalized error description.
type ErrorInfo struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Describe normalizes err. Panics recovered by the fault hub keep their
// stack.
func Describe(err error) ErrorInfo {
	info := ErrorInfo{Name: fmt.Sprintf("%T", err), Message: err.Error()}
	var pe *fault.PanicError
	if errors.As(err, &pe) {
		info.Name = "panic"
		info.Stack = string(pe.Stack)
	}
	return info
}

// Record is one persisted failure, stored under "error-<ID>".
type Record struct {
	ID             string       `json:"id"`
	Context        *Snapshot    `json:"context,omitempty"`
	Error          ErrorInfo    `json:"error"`
	Command        *CommandInfo `json:"command,omitempty"`
	IsMessageError bool         `json:"is_message_error"`
	Type           Type         `json:"type,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Invite is an invite URL, stored as JSON false while none was created.
type Invite string

func (i Invite) MarshalJSON() ([]byte, error) {
	if i == "" {
		return []byte("false"), nil
	}
	return json.Marshal(string(i))
}

func (i *Invite) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("false")) || bytes.Equal(b, []byte("null")) {
		*i = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*i = Invite(s)
	return nil
}

// Mapping correlates a report message with its record. Channel is the
// origin channel of the failure, used for invites.
type Mapping struct {
	Error   string `json:"error"`
	Channel string `json:"channel"`
	Invite  Invite `json:"invite"`
}

// ErrorEvent is handed to the OnError callback for command faults.
type ErrorEvent struct {
	ID       string
	Err      error
	Snapshot *Snapshot
	Command  *CommandInfo
}
