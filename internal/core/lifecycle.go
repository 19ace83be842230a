package core

import "context"

// Starter is implemented by components that start background work
// (listeners, schedulers, connections).
type Starter interface {
	Start() error
}

// Stopper is implemented by components that release resources. Stop is
// called in reverse order of Start.
type Stopper interface {
	Stop(ctx context.Context) error
}

// StopFunc adapts a cleanup function to Stopper.
type StopFunc func(ctx context.Context) error

// Stop implements Stopper.
func (f StopFunc) Stop(ctx context.Context) error { return f(ctx) }

// CloseFunc adapts an io.Closer-style function to Stopper.
type CloseFunc func() error

// Stop implements Stopper.
func (f CloseFunc) Stop(context.Context) error { return f() }
