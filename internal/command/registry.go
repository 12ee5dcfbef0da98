package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"guildkit/internal/argument"
	"guildkit/internal/resolve"
	"guildkit/internal/security"
	"guildkit/pkg/cmd"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidName    = errors.New("invalid command name")
	ErrDuplicateCheck = errors.New("check already registered")
)

// Entry is a registered command: its descriptor, the command as written and
// the runner with middleware applied.
type Entry struct {
	Descriptor
	Command Command
	runner  cmd.Command
}

// Run executes the entry through its middleware chain.
func (e *Entry) Run(c *Context, args resolve.Args) error {
	return e.runner.Run(c.Context(), &cmd.Invocation{Args: args, Data: c})
}

// adapter lets a Command live in a cmd.Registry.
type adapter struct {
	entry *Entry
}

func (a *adapter) Name() string { return a.entry.Name }
func (a *adapter) Description() string { return a.entry.Description }

func (a *adapter) Run(ctx context.Context, inv *cmd.Invocation) error {
	c, ok := inv.Data.(*Context)
	if !ok {
		return fmt.Errorf("command %s: unexpected invocation data %T", a.entry.Name, inv.Data)
	}
	return a.entry.Command.Run(c.WithContext(ctx), resolve.Args(inv.Args))
}

// EntryOf returns the Entry behind a command taken from the underlying
// cmd.Registry, looking through middleware.
func EntryOf(c cmd.Command) (*Entry, bool) {
	a, ok := cmd.Root(c).(*adapter)
	if !ok {
		return nil, false
	}
	return a.entry, true
}

// Registry holds commands, their aliases and the named security checks they
// may reference.
type Registry struct {
	commands    *cmd.Registry
	middlewares []cmd.Middleware
	logger      zerolog.Logger

	mu     sync.RWMutex
	checks map[string]security.Check
}

// NewRegistry returns an empty registry. mws wrap every command registered
// afterwards, in order.
func NewRegistry(mws ...cmd.Middleware) *Registry {
	return &Registry{
		commands:    cmd.NewRegistry(),
		middlewares: mws,
		logger:      log.With().Str("component", "registry").Logger(),
		checks:      make(map[string]security.Check),
	}
}

// RegisterCheck makes fn available to policies under name.
func (r *Registry) RegisterCheck(name string, fn security.Check) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.checks[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCheck, name)
	}
	r.checks[name] = fn
	return nil
}

// Check implements security.CheckSource.
func (r *Registry) Check(name string) (security.Check, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.checks[name]
	return fn, ok
}

func (r *Registry) knownCheck(name string) bool {
	_, ok := r.Check(name)
	return ok
}

// Register validates c and adds it. Incomplete argument schemas, unknown
// check names and duplicate names are rejected; nothing is registered then.
func (r *Registry) Register(c Command) error {
	d := Describe(c)
	if d.Name == "" || d.Name != strings.ToLower(d.Name) || strings.ContainsAny(d.Name, " \t\n") {
		return fmt.Errorf("%w: %q", ErrInvalidName, d.Name)
	}
	if err := argument.Validate(d.Arguments); err != nil {
		return fmt.Errorf("command %s: %w", d.Name, err)
	}
	if err := d.Security.Validate(r.knownCheck); err != nil {
		return fmt.Errorf("command %s: %w", d.Name, err)
	}

	e := &Entry{Descriptor: d, Command: c}
	var runner cmd.Command = &adapter{entry: e}
	if p, ok := c.(MiddlewareProvider); ok {
		runner = cmd.Apply(runner, p.Middleware()...)
	}
	e.runner = cmd.Apply(runner, r.middlewares...)
	if err := r.commands.Register(e.runner); err != nil {
		return err
	}

	for _, alias := range d.Aliases {
		alias = strings.ToLower(alias)
		if !r.commands.Alias(alias, d.Name) {
			owner := ""
			if other := r.commands.Get(alias); other != nil {
				owner = other.Name()
			}
			r.logger.Warn().Str("command", d.Name).Str("alias", alias).Str("owner", owner).Msg("Alias already taken, skipping")
		}
	}
	r.logger.Debug().Str("command", d.Name).Msg("Registered command")
	return nil
}

// RegisterAll registers every command. A failing command is skipped; the
// others still register. The joined failures are returned.
func (r *Registry) RegisterAll(cs ...Command) error {
	var errs []error
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			r.logger.Error().Err(err).Msg("Failed to register command")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Lookup finds a command by name or alias.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	c := r.commands.Get(strings.ToLower(name))
	if c == nil {
		return nil, false
	}
	return EntryOf(c)
}

// All returns every command sorted by name.
func (r *Registry) All() []*Entry {
	var out []*Entry
	for _, c := range r.commands.GetAll() {
		if e, ok := EntryOf(c); ok {
			out = append(out, e)
		}
	}
	return out
}

// Slash returns the commands that register as slash commands.
func (r *Registry) Slash() []*Entry {
	var out []*Entry
	for _, e := range r.All() {
		if e.Slash {
			out = append(out, e)
		}
	}
	return out
}
