// Package core runs toolgate's long-lived components in order and shuts
// them down in reverse.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultStopTimeout bounds the whole shutdown sequence.
const DefaultStopTimeout = 30 * time.Second

// App manages the lifecycle of an ordered set of components.
type App struct {
	components  []component
	logger      *slog.Logger
	stopTimeout time.Duration
}

type component struct {
	name    string
	value   any
	started bool
}

// NewApp creates an empty App.
func NewApp(logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		logger:      logger.With("component", "core"),
		stopTimeout: DefaultStopTimeout,
	}
}

// SetStopTimeout overrides DefaultStopTimeout.
func (a *App) SetStopTimeout(d time.Duration) {
	if d > 0 {
		a.stopTimeout = d
	}
}

// Add appends a component. It must implement Starter, Stopper, or both.
// A Stopper that is not a Starter counts as started once added, so that
// resources opened during wiring are released on Stop.
func (a *App) Add(name string, c any) error {
	_, isStarter := c.(Starter)
	_, isStopper := c.(Stopper)
	if !isStarter && !isStopper {
		return fmt.Errorf("core: component %s implements neither Starter nor Stopper", name)
	}
	a.components = append(a.components, component{name: name, value: c, started: !isStarter})
	return nil
}

// Components returns the component names in start order.
func (a *App) Components() []string {
	names := make([]string, len(a.components))
	for i, c := range a.components {
		names[i] = c.name
	}
	return names
}

// Start starts every Starter in order. If one fails, the components
// already running are stopped in reverse order.
func (a *App) Start() error {
	for i := range a.components {
		c := &a.components[i]
		s, ok := c.value.(Starter)
		if !ok {
			continue
		}
		a.logger.Info("starting component", "name", c.name)
		if err := s.Start(); err != nil {
			a.logger.Error("component start failed", "name", c.name, "error", err)
			a.stopFrom(i - 1)
			return fmt.Errorf("starting %s: %w", c.name, err)
		}
		c.started = true
	}
	a.logger.Info("all components started", "count", len(a.components))
	return nil
}

// Stop stops every started component in reverse order.
func (a *App) Stop() {
	a.stopFrom(len(a.components) - 1)
}

func (a *App) stopFrom(index int) {
	ctx, cancel := context.WithTimeout(context.Background(), a.stopTimeout)
	defer cancel()

	for i := index; i >= 0; i-- {
		c := &a.components[i]
		if !c.started {
			continue
		}
		if s, ok := c.value.(Stopper); ok {
			a.logger.Info("stopping component", "name", c.name)
			if err := s.Stop(ctx); err != nil {
				a.logger.Error("component stop error", "name", c.name, "error", err)
			}
		}
		c.started = false
	}
}

// Run starts all components and blocks until ctx is done, then stops them.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown requested", "cause", context.Cause(ctx))

	a.Stop()
	a.logger.Info("shutdown complete")
	return nil
}
