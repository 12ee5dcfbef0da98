// Package storage is the typed facade over a KV backend: guild and user
// settings, stored ID sets used by restrictions, and command history.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

const commandHistoryLimit = 20

// Storage wraps a KV. A Storage built from a nil KV is valid and reports
// Enabled() == false; reads return nothing and writes are dropped.
type Storage struct {
	kv KV
}

func New(kv KV) *Storage {
	return &Storage{kv: kv}
}

// Enabled reports whether a persistence backend is configured.
func (s *Storage) Enabled() bool {
	return s != nil && s.kv != nil
}

func (s *Storage) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.kv.Close()
}

// Load decodes the value under key into dst. It reports false if the key
// does not exist.
func (s *Storage) Load(ctx context.Context, key string, dst any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Save stores v under key.
func (s *Storage) Save(ctx context.Context, key string, v any) error {
	if !s.Enabled() {
		return nil
	}
	return s.kv.Set(ctx, key, v)
}

// Has reports whether key exists.
func (s *Storage) Has(ctx context.Context, key string) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	_, ok, err := s.kv.Get(ctx, key)
	return ok, err
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	return s.kv.Delete(ctx, key)
}

// Keys lists keys with the given prefix.
func (s *Storage) Keys(ctx context.Context, prefix string) ([]string, error) {
	if !s.Enabled() {
		return nil, nil
	}
	return s.kv.Keys(ctx, prefix)
}

// --- settings ---

// Settings is a free-form settings document.
type Settings map[string]any

// String returns the string setting key, or "".
func (st Settings) String(key string) string {
	s, _ := st[key].(string)
	return s
}

func GuildKey(guildID string) string { return "guild-" + guildID }
func UserKey(userID string) string   { return "user-" + userID }

// GuildSettings loads guild-<id>, filling unset keys from defaults.
func (s *Storage) GuildSettings(ctx context.Context, guildID string, defaults Settings) (Settings, error) {
	return s.settings(ctx, GuildKey(guildID), defaults)
}

// UserSettings loads user-<id>, filling unset keys from defaults.
func (s *Storage) UserSettings(ctx context.Context, userID string, defaults Settings) (Settings, error) {
	return s.settings(ctx, UserKey(userID), defaults)
}

func (s *Storage) settings(ctx context.Context, key string, defaults Settings) (Settings, error) {
	out := Settings{}
	if _, err := s.Load(ctx, key, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = Settings{}
	}
	for k, v := range defaults {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out, nil
}

// SetGuildSetting updates one key of a guild's settings.
func (s *Storage) SetGuildSetting(ctx context.Context, guildID, key string, value any) error {
	st := Settings{}
	if _, err := s.Load(ctx, GuildKey(guildID), &st); err != nil {
		return err
	}
	if st == nil {
		st = Settings{}
	}
	st[key] = value
	return s.Save(ctx, GuildKey(guildID), st)
}

// --- ID sets ---

// StringSet loads a stored list of IDs. ok is false when the key is absent.
func (s *Storage) StringSet(ctx context.Context, key string) (ids []string, ok bool, err error) {
	ok, err = s.Load(ctx, key, &ids)
	return ids, ok, err
}

// AddToSet appends id to the set under key unless already present.
func (s *Storage) AddToSet(ctx context.Context, key, id string) error {
	ids, _, err := s.StringSet(ctx, key)
	if err != nil {
		return err
	}
	if slices.Contains(ids, id) {
		return nil
	}
	return s.Save(ctx, key, append(ids, id))
}

// RemoveFromSet removes id from the set under key and reports whether it was
// present.
func (s *Storage) RemoveFromSet(ctx context.Context, key, id string) (bool, error) {
	ids, _, err := s.StringSet(ctx, key)
	if err != nil {
		return false, err
	}
	i := slices.Index(ids, id)
	if i < 0 {
		return false, nil
	}
	return true, s.Save(ctx, key, slices.Delete(ids, i, i+1))
}

// --- command history ---

type CommandHistoryRecord struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	GuildName   string    `json:"guild_name"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Command     string    `json:"command"`
	Args        []string  `json:"args,omitempty"`
	Slash       bool      `json:"slash"`
	Datetime    time.Time `json:"datetime"`
}

func historyKey(guildID string) string { return "history-" + guildID }

// AppendCommandHistory records one invocation, keeping the newest entries.
func (s *Storage) AppendCommandHistory(ctx context.Context, guildID string, rec CommandHistoryRecord) error {
	list, err := s.CommandHistory(ctx, guildID)
	if err != nil {
		return err
	}
	list = append(list, rec)
	if len(list) > commandHistoryLimit {
		list = list[len(list)-commandHistoryLimit:]
	}
	return s.Save(ctx, historyKey(guildID), list)
}

// CommandHistory returns recorded invocations, oldest first.
func (s *Storage) CommandHistory(ctx context.Context, guildID string) ([]CommandHistoryRecord, error) {
	var list []CommandHistoryRecord
	if _, err := s.Load(ctx, historyKey(guildID), &list); err != nil {
		return nil, err
	}
	return list, nil
}
