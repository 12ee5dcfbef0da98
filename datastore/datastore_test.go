package datastore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "nested", "store.json"))
	cfg.AutoSaveInterval = 0
	cfg.BackupCount = 2
	return cfg
}

func TestSetGetDeleteKeys(t *testing.T) {
	ctx := context.Background()
	ds, err := NewWithConfig(testConfig(t))
	require.NoError(t, err)
	defer ds.Close()

	require.NoError(t, ds.Set(ctx, "error-abc", map[string]string{"id": "abc"}))
	require.NoError(t, ds.Set(ctx, "error-def", 1))
	require.NoError(t, ds.Set(ctx, "guild-1", map[string]any{"prefix": "!"}))

	raw, ok, err := ds.Get(ctx, "error-abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"abc"}`, string(raw))

	keys, err := ds.Keys(ctx, "error-")
	require.NoError(t, err)
	assert.Equal(t, []string{"error-abc", "error-def"}, keys)

	require.NoError(t, ds.Delete(ctx, "error-abc"))
	require.NoError(t, ds.Delete(ctx, "missing"))
	_, ok, err = ds.Get(ctx, "error-abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	require.NoError(t, ds.Set(ctx, "user-9", map[string]bool{"muted": true}))
	require.NoError(t, ds.Close())

	data, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)
	var onDisk map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Contains(t, onDisk, "user-9")

	again, err := NewWithConfig(cfg)
	require.NoError(t, err)
	defer again.Close()
	raw, ok, err := again.Get(ctx, "user-9")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"muted":true}`, string(raw))
}

func TestClosedStoreRejectsCalls(t *testing.T) {
	ctx := context.Background()
	ds, err := NewWithConfig(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, ds.Close())
	require.NoError(t, ds.Close())

	assert.ErrorIs(t, ds.Set(ctx, "k", 1), ErrClosed)
	_, _, err = ds.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, ds.SaveToFile(), ErrClosed)
}

func TestBackupsAreRotated(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	defer ds.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, ds.Set(ctx, "counter", i))
		require.NoError(t, ds.SaveToFile())
	}
	backups, err := filepath.Glob(cfg.FilePath + ".backup.*")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(backups), cfg.BackupCount)
}

func TestRejectsCorruptFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755))
	require.NoError(t, os.WriteFile(cfg.FilePath, []byte("{not json"), 0o644))

	_, err := NewWithConfig(cfg)
	assert.ErrorContains(t, err, "invalid JSON")
}
