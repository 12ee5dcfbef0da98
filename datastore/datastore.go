// Package datastore is a JSON-file key/value store. Values live in memory as
// raw JSON and are flushed to disk periodically and on Close, using an atomic
// temp-file rename plus rotating backups.
package datastore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("datastore is closed")

// Config holds configuration options for the DataStore.
type Config struct {
	FilePath         string
	AutoSaveInterval time.Duration // 0 disables autosave
	BackupCount      int           // number of backup files to keep
	Logger           zerolog.Logger
}

// DefaultConfig returns the configuration used by New.
func DefaultConfig(filePath string) Config {
	return Config{
		FilePath:         filePath,
		AutoSaveInterval: 10 * time.Second,
		BackupCount:      3,
		Logger:           log.With().Str("component", "datastore").Logger(),
	}
}

type DataStore struct {
	mu     sync.RWMutex
	data   map[string]json.RawMessage
	cfg    Config
	closed bool

	saveMu       sync.Mutex
	lastChecksum string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New opens the store at filePath with the default configuration.
func New(filePath string) (*DataStore, error) {
	return NewWithConfig(DefaultConfig(filePath))
}

// NewWithConfig opens or creates the store described by cfg.
func NewWithConfig(cfg Config) (*DataStore, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	ds := &DataStore{data: make(map[string]json.RawMessage), cfg: cfg}

	switch _, err := os.Stat(cfg.FilePath); {
	case os.IsNotExist(err):
		if err := ds.writeFileAtomic([]byte("{}")); err != nil {
			return nil, fmt.Errorf("create empty store: %w", err)
		}
	case err == nil:
		if err := ds.loadFromFile(); err != nil {
			return nil, fmt.Errorf("load store: %w", err)
		}
	default:
		return nil, fmt.Errorf("stat store file: %w", err)
	}

	if cfg.AutoSaveInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		ds.cancel = cancel
		ds.wg.Add(1)
		go ds.autoSave(ctx)
	}
	return ds, nil
}

// Get returns the raw JSON stored under key.
func (ds *DataStore) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.closed {
		return nil, false, ErrClosed
	}
	v, ok := ds.data[key]
	if !ok {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), v...), true, nil
}

// Set stores value as JSON under key.
func (ds *DataStore) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return ErrClosed
	}
	ds.data[key] = raw
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (ds *DataStore) Delete(_ context.Context, key string) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return ErrClosed
	}
	delete(ds.data, key)
	return nil
}

// Keys returns every key starting with prefix, sorted.
func (ds *DataStore) Keys(_ context.Context, prefix string) ([]string, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.closed {
		return nil, ErrClosed
	}
	var keys []string
	for k := range ds.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// SaveToFile forces an immediate save to disk.
func (ds *DataStore) SaveToFile() error {
	ds.mu.RLock()
	closed := ds.closed
	ds.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return ds.saveToFile()
}

// Close stops autosave and writes the final state.
func (ds *DataStore) Close() error {
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return nil
	}
	ds.closed = true
	ds.mu.Unlock()

	if ds.cancel != nil {
		ds.cancel()
	}
	ds.wg.Wait()
	return ds.saveToFile()
}

func (ds *DataStore) saveToFile() error {
	ds.saveMu.Lock()
	defer ds.saveMu.Unlock()

	ds.mu.RLock()
	data, err := json.MarshalIndent(ds.data, "", "  ")
	ds.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	sum := checksum(data)
	if sum == ds.lastChecksum {
		return nil
	}

	if ds.cfg.BackupCount > 0 {
		if err := ds.createBackup(); err != nil {
			ds.cfg.Logger.Warn().Err(err).Msg("Failed to create backup")
		}
	}
	if err := ds.writeFileAtomic(data); err != nil {
		return err
	}
	if err := ds.verifyFile(sum); err != nil {
		return fmt.Errorf("file verification failed: %w", err)
	}
	ds.lastChecksum = sum
	return nil
}

func (ds *DataStore) loadFromFile() error {
	data, err := os.ReadFile(ds.cfg.FilePath)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	var tmp map[string]json.RawMessage
	if err := json.Unmarshal(data, &tmp); err != nil {
		return fmt.Errorf("invalid JSON format: %w", err)
	}
	if tmp == nil {
		tmp = make(map[string]json.RawMessage)
	}
	ds.data = tmp
	ds.lastChecksum = checksum(data)
	return nil
}

// writeFileAtomic writes to a temp file, syncs it and renames it over the
// store file.
func (ds *DataStore) writeFileAtomic(data []byte) error {
	tmp := ds.cfg.FilePath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	f.Close()

	if err := os.Rename(tmp, ds.cfg.FilePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (ds *DataStore) verifyFile(want string) error {
	actual, err := os.ReadFile(ds.cfg.FilePath)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	if checksum(actual) != want {
		return fmt.Errorf("checksum mismatch")
	}
	return nil
}

func (ds *DataStore) createBackup() error {
	src, err := os.Open(ds.cfg.FilePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	name := fmt.Sprintf("%s.backup.%s", ds.cfg.FilePath, time.Now().Format("20060102_150405.000000"))
	dst, err := os.Create(name)
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}

	ds.cleanupOldBackups()
	return nil
}

// cleanupOldBackups keeps the newest BackupCount backups.
func (ds *DataStore) cleanupOldBackups() {
	matches, err := filepath.Glob(ds.cfg.FilePath + ".backup.*")
	if err != nil || len(matches) <= ds.cfg.BackupCount {
		return
	}
	// Backup names embed a sortable timestamp.
	sort.Strings(matches)
	for _, m := range matches[:len(matches)-ds.cfg.BackupCount] {
		os.Remove(m)
	}
}

func (ds *DataStore) autoSave(ctx context.Context) {
	defer ds.wg.Done()

	ticker := time.NewTicker(ds.cfg.AutoSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ds.saveToFile(); err != nil {
				ds.cfg.Logger.Error().Err(err).Msg("Auto-save failed")
			}
		}
	}
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Stats returns basic statistics for diagnostics.
func (ds *DataStore) Stats() map[string]any {
	ds.mu.RLock()
	keys := len(ds.data)
	ds.mu.RUnlock()
	ds.saveMu.Lock()
	saved := ds.lastChecksum != ""
	ds.saveMu.Unlock()
	return map[string]any{
		"keys":      keys,
		"file_path": ds.cfg.FilePath,
		"saved":     saved,
	}
}
