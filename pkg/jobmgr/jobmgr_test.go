package jobmgr

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type events struct {
	mu  sync.Mutex
	all []string
}

func (e *events) add(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.all = append(e.all, ev.String())
}

func (e *events) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.all...)
}

func TestAsyncLifecycle(t *testing.T) {
	var ev events
	m := NewManager(ev.add)

	release := make(chan struct{})
	require.NoError(t, m.StartAsync(context.Background(), "sync", func(ctx context.Context) error {
		<-release
		return nil
	}))
	assert.ErrorIs(t, m.StartAsync(context.Background(), "sync", func(context.Context) error { return nil }), ErrRunning)
	assert.Equal(t, []string{"sync"}, m.List())
	assert.Equal(t, "Running jobs: sync", m.Status())

	close(release)
	m.Wait()

	assert.Empty(t, m.List())
	assert.Equal(t, "No jobs are running.", m.Status())
	assert.Equal(t, []string{"running:sync", "done:sync"}, ev.list())
}

func TestStopCancelsAndWaits(t *testing.T) {
	m := NewManager(nil)
	started := make(chan struct{})
	require.NoError(t, m.StartAsync(context.Background(), "loop", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	<-started

	require.NoError(t, m.Stop("loop"))
	assert.Empty(t, m.List())
	assert.ErrorIs(t, m.Stop("loop"), ErrNotRunning)
	m.Wait()
}

func TestSyncReportsFailure(t *testing.T) {
	var ev events
	m := NewManager(ev.add)
	boom := errors.New("boom")

	err := m.StartSync(context.Background(), "once", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"running:once", "error:once:boom"}, ev.list())
	assert.Empty(t, m.List())
}

func TestShutdown(t *testing.T) {
	m := NewManager(nil)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, m.StartAsync(context.Background(), name, func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}))
	}
	assert.Equal(t, []string{"a", "b", "c"}, m.List())
	m.Shutdown()
	assert.Empty(t, m.List())
}
