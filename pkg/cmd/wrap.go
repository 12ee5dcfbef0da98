package cmd

import "context"

// RunFunc is the signature of Command.Run.
type RunFunc func(ctx context.Context, inv *Invocation) error

type wrapped struct {
	inner Command
	run   RunFunc
}

func (w *wrapped) Name() string        { return w.inner.Name() }
func (w *wrapped) Description() string { return w.inner.Description() }

func (w *wrapped) Run(ctx context.Context, inv *Invocation) error {
	return w.run(ctx, inv)
}

// Wrap returns a command named like c whose Run is run. Root sees through it.
func Wrap(c Command, run RunFunc) Command {
	if run == nil {
		run = c.Run
	}
	return &wrapped{inner: c, run: run}
}

// Root returns the command at the bottom of a chain of Wrap calls.
func Root(c Command) Command {
	for {
		w, ok := c.(*wrapped)
		if !ok {
			return c
		}
		c = w.inner
	}
}
