package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"guildkit/datastore"
	"guildkit/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns every KV implementation that can run without external
// services. Postgres joins when GUILDKIT_TEST_DATABASE_URL is set.
func backends(t *testing.T) map[string]KV {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	cfg := datastore.DefaultConfig(filepath.Join(dir, "store.json"))
	cfg.AutoSaveInterval = 0
	ds, err := datastore.NewWithConfig(cfg)
	require.NoError(t, err)

	lite, err := OpenSQLite(ctx, filepath.Join(dir, "store.db"))
	require.NoError(t, err)

	out := map[string]KV{"json": ds, "sqlite": lite}
	if url := os.Getenv("GUILDKIT_TEST_DATABASE_URL"); url != "" {
		pg, err := OpenPostgres(ctx, url)
		require.NoError(t, err)
		out["postgres"] = pg
	}
	t.Cleanup(func() {
		for _, kv := range out {
			kv.Close()
		}
	})
	return out
}

func TestKVContract(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			prefix := "contract-" + name + "-"
			require.NoError(t, kv.Set(ctx, prefix+"a", map[string]any{"n": 1}))
			require.NoError(t, kv.Set(ctx, prefix+"b", "two"))
			require.NoError(t, kv.Set(ctx, prefix+"b", "three"))
			require.NoError(t, kv.Set(ctx, "other-"+name, true))

			raw, ok, err := kv.Get(ctx, prefix+"b")
			require.NoError(t, err)
			require.True(t, ok)
			assert.JSONEq(t, `"three"`, string(raw))

			keys, err := kv.Keys(ctx, prefix)
			require.NoError(t, err)
			assert.Equal(t, []string{prefix + "a", prefix + "b"}, keys)

			require.NoError(t, kv.Delete(ctx, prefix+"a"))
			_, ok, err = kv.Get(ctx, prefix+"a")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, kv.Delete(ctx, prefix+"b"))
			require.NoError(t, kv.Delete(ctx, "other-"+name))
		})
	}
}

func TestSQLiteKeysEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Set(ctx, "error_x", 1))
	require.NoError(t, db.Set(ctx, "errorAx", 1))

	keys, err := db.Keys(ctx, "error_")
	require.NoError(t, err)
	assert.Equal(t, []string{"error_x"}, keys)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	kv, err := Open(ctx, config.DriverNone, "")
	require.NoError(t, err)
	assert.Nil(t, kv)
	assert.False(t, New(kv).Enabled())

	kv, err = Open(ctx, config.DriverSQLite, filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	require.NotNil(t, kv)
	require.NoError(t, kv.Close())

	_, err = Open(ctx, "redis", "")
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestSettingsDefaults(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(kv)
			guild := "settings-" + name
			require.NoError(t, s.Delete(ctx, GuildKey(guild)))

			st, err := s.GuildSettings(ctx, guild, Settings{"prefix": "!", "lang": "en"})
			require.NoError(t, err)
			assert.Equal(t, "!", st.String("prefix"))

			require.NoError(t, s.SetGuildSetting(ctx, guild, "prefix", "?"))
			st, err = s.GuildSettings(ctx, guild, Settings{"prefix": "!", "lang": "en"})
			require.NoError(t, err)
			assert.Equal(t, "?", st.String("prefix"))
			assert.Equal(t, "en", st.String("lang"))

			us, err := s.UserSettings(ctx, "u-"+name, nil)
			require.NoError(t, err)
			assert.Empty(t, us)
		})
	}
}

func TestStringSets(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(kv)
			key := "allowed-" + name
			require.NoError(t, s.Delete(ctx, key))

			_, ok, err := s.StringSet(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.AddToSet(ctx, key, "1"))
			require.NoError(t, s.AddToSet(ctx, key, "2"))
			require.NoError(t, s.AddToSet(ctx, key, "1"))
			ids, ok, err := s.StringSet(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []string{"1", "2"}, ids)

			removed, err := s.RemoveFromSet(ctx, key, "1")
			require.NoError(t, err)
			assert.True(t, removed)
			removed, err = s.RemoveFromSet(ctx, key, "9")
			require.NoError(t, err)
			assert.False(t, removed)

			ids, _, err = s.StringSet(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, []string{"2"}, ids)
		})
	}
}

func TestCommandHistoryIsCapped(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(kv)
			guild := "hist-" + name
			require.NoError(t, s.Delete(ctx, historyKey(guild)))
			for i := 0; i < commandHistoryLimit+5; i++ {
				require.NoError(t, s.AppendCommandHistory(ctx, guild, CommandHistoryRecord{
					Command:  "ping",
					Args:     []string{string(rune('a' + i%26))},
					Datetime: time.Unix(int64(i), 0).UTC(),
				}))
			}
			list, err := s.CommandHistory(ctx, guild)
			require.NoError(t, err)
			require.Len(t, list, commandHistoryLimit)
			assert.True(t, time.Unix(5, 0).Equal(list[0].Datetime))
		})
	}
}

func TestDisabledStorageIsInert(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	require.NoError(t, s.Save(ctx, "k", 1))
	ok, err := s.Load(ctx, "k", new(int))
	require.NoError(t, err)
	assert.False(t, ok)

	st, err := s.GuildSettings(ctx, "g", Settings{"prefix": "!"})
	require.NoError(t, err)
	assert.Equal(t, "!", st.String("prefix"))
	assert.NoError(t, s.Close())
}
