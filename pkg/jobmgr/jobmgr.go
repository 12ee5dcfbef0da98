// Package jobmgr runs named background jobs with cancellation, lifecycle
// callbacks and in-memory tracking of what is running.
//
//	jm := jobmgr.NewManager(func(ev jobmgr.Event) {
//	    log.Info().Str("job", ev.Job).Str("state", string(ev.State)).Msg("job")
//	})
//	err := jm.StartAsync(ctx, "slash-sync:global", func(ctx context.Context) error {
//	    return sync(ctx)
//	})
//	...
//	jm.Shutdown()
//
// A name can only run once at a time. There is no retry and no persistence.
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrRunning    = errors.New("job is already running")
	ErrNotRunning = errors.New("job is not running")
)

// State is a lifecycle stage reported to the Reporter.
type State string

const (
	Running State = "running"
	Done    State = "done"
	Failed  State = "error"
)

// Event describes one lifecycle transition.
type Event struct {
	Job   string
	State State
	Err   error
}

func (e Event) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s:%s:%v", e.State, e.Job, e.Err)
	}
	return fmt.Sprintf("%s:%s", e.State, e.Job)
}

// Reporter receives lifecycle events. It may be called from job goroutines.
type Reporter func(Event)

type job struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*job
	reporter Reporter
	wg       sync.WaitGroup
}

// NewManager creates a Manager. reporter may be nil.
func NewManager(reporter Reporter) *Manager {
	return &Manager{jobs: make(map[string]*job), reporter: reporter}
}

// StartSync runs runner in the calling goroutine under name.
func (m *Manager) StartSync(ctx context.Context, name string, runner func(ctx context.Context) error) error {
	j, ctx, err := m.add(ctx, name)
	if err != nil {
		return err
	}
	return m.run(ctx, name, j, runner)
}

// StartAsync runs runner in a new goroutine and returns immediately. The
// job's context derives from ctx and is also cancelled by Stop.
func (m *Manager) StartAsync(ctx context.Context, name string, runner func(ctx context.Context) error) error {
	j, ctx, err := m.add(ctx, name)
	if err != nil {
		return err
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_ = m.run(ctx, name, j, runner)
	}()
	return nil
}

func (m *Manager) add(parent context.Context, name string) (*job, context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[name]; ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunning, name)
	}
	ctx, cancel := context.WithCancel(parent)
	j := &job{cancel: cancel, done: make(chan struct{})}
	m.jobs[name] = j
	return j, ctx, nil
}

func (m *Manager) run(ctx context.Context, name string, j *job, runner func(ctx context.Context) error) error {
	defer func() {
		j.cancel()
		m.mu.Lock()
		if m.jobs[name] == j {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
		close(j.done)
	}()

	m.report(Event{Job: name, State: Running})
	err := runner(ctx)
	if err != nil {
		m.report(Event{Job: name, State: Failed, Err: err})
	} else {
		m.report(Event{Job: name, State: Done})
	}
	return err
}

// Stop cancels a running job and waits for it to return.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	j, ok := m.jobs[name]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, name)
	}
	j.cancel()
	<-j.done
	return nil
}

// Shutdown cancels every job and waits for all of them.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for _, j := range m.jobs {
		j.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// Wait blocks until every async job has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// List returns the names of running jobs, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Status returns a one-line summary of running jobs.
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return "Running jobs: " + strings.Join(active, ", ")
}

func (m *Manager) report(ev Event) {
	if m.reporter != nil {
		m.reporter(ev)
	}
}
