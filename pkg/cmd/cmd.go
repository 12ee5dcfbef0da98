// Package cmd is the transport-agnostic command core: a command has a name, a
// description and Run(ctx, invocation). Registering and dispatching it over
// Discord messages, slash interactions or a CLI is left to adapters.
package cmd

import "context"

// Invocation carries resolved arguments and an opaque payload. Adapters set
// Data to their own context type.
type Invocation struct {
	Args []any
	Data any
}

type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Middleware decorates a command, typically through Wrap.
type Middleware func(Command) Command

// Apply wraps c with mws in order, so the last one runs first.
func Apply(c Command, mws ...Middleware) Command {
	for _, mw := range mws {
		c = mw(c)
	}
	return c
}
