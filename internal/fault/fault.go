// Package fault routes failures that happen outside any command context
// (panics in background goroutines, errors returned by fire-and-forget work)
// to explicit subscribers.
package fault

import (
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
)

// Kind tells subscribers where a fault came from.
type Kind string

const (
	// Uncaught is a recovered panic.
	Uncaught Kind = "uncaught"
	// Unhandled is an error returned by background work nobody waited on.
	Unhandled Kind = "unhandledRejection"
)

// Handler receives published faults. It must not block for long.
type Handler func(kind Kind, err error)

// PanicError wraps a recovered panic value with the stack at recovery.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// Unwrap exposes a panicked error value.
func (p *PanicError) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}

// NewPanicError captures the current stack.
func NewPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
	wg     sync.WaitGroup
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]Handler)}
}

// Subscribe registers fn and returns a function that removes it.
func (h *Hub) Subscribe(fn Handler) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Publish delivers err to every subscriber in subscription order.
func (h *Hub) Publish(kind Kind, err error) {
	if err == nil {
		return
	}
	h.mu.RLock()
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, h.subs[id])
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(kind, err)
	}
}

// Go runs fn in a new goroutine. A panic is published as Uncaught and a
// returned error as Unhandled.
func (h *Hub) Go(fn func() error) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.Recover()
		if err := fn(); err != nil {
			h.Publish(Unhandled, err)
		}
	}()
}

// Recover publishes a panic in progress as Uncaught. Use it directly with
// defer.
func (h *Hub) Recover() {
	if r := recover(); r != nil {
		h.Publish(Uncaught, NewPanicError(r))
	}
}

// Wait blocks until every goroutine started with Go has returned.
func (h *Hub) Wait() {
	h.wg.Wait()
}
