package cmd

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrDuplicate = errors.New("command already registered")

// Registry stores commands by name plus a secondary alias table. It does not
// perform dispatch; each adapter looks up commands and invokes them with its
// own context.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	aliases  map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		aliases:  make(map[string]string),
	}
}

// Register adds a command. Names are unique.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[c.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, c.Name())
	}
	r.commands[c.Name()] = c
	return nil
}

// Alias points alias at the command called name. The first registration of
// an alias wins and an alias never shadows a command name; Alias reports
// whether the alias was taken.
func (r *Registry) Alias(alias, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[alias]; ok {
		return false
	}
	if _, ok := r.aliases[alias]; ok {
		return false
	}
	r.aliases[alias] = name
	return true
}

// Get returns the command with the given name or alias, or nil.
func (r *Registry) Get(name string) Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.commands[name]; ok {
		return c
	}
	if target, ok := r.aliases[name]; ok {
		return r.commands[target]
	}
	return nil
}

// GetAll returns all registered commands, sorted by name.
func (r *Registry) GetAll() []Command {
	r.mu.RLock()
	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	r.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}
