// Package dispatch forwards tool invocations to the execution backend.
//
// Execute runs one call behind the workflow gate. ExecuteBatch runs an
// ordered chain in which later steps reference earlier results through
// path expressions; the batch is gated once as a whole and halts at the
// first failing step. Nothing is retried and nothing is rolled back.
package dispatch

import (
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/toolgate/internal/backend"
	"github.com/flemzord/toolgate/internal/catalog"
	"github.com/flemzord/toolgate/internal/observability"
	"github.com/flemzord/toolgate/internal/pathexpr"
	"github.com/flemzord/toolgate/internal/security"
	"github.com/flemzord/toolgate/internal/session"
)

// DefaultTimeout bounds one backend call.
const DefaultTimeout = 30 * time.Second

// Gate is the part of the workflow gate the dispatcher needs.
type Gate interface {
	Check(tool string) session.Decision
	RecordToolUsage(tool string)
}

// Config configures a Dispatcher. Registry, Backend and Gate are required.
type Config struct {
	Registry *catalog.Registry
	Backend  backend.Backend
	Gate     Gate

	// Resolver evaluates paramsMapping. Nil uses default plural suffixes.
	Resolver *pathexpr.Resolver

	// Timeout bounds each backend call. Zero selects DefaultTimeout.
	Timeout time.Duration

	Logger  *slog.Logger
	Audit   *security.AuditLogger
	Limiter *security.RateLimiter
	Metrics *observability.Metrics
	Tracer  trace.Tracer
}

// Dispatcher validates and forwards tool calls. It is safe for concurrent
// use; concurrent calls are not ordered relative to each other.
type Dispatcher struct {
	registry *catalog.Registry
	backend  backend.Backend
	gate     Gate
	resolver *pathexpr.Resolver
	timeout  time.Duration
	logger   *slog.Logger
	audit    *security.AuditLogger
	limiter  *security.RateLimiter
	metrics  *observability.Metrics
	tracer   trace.Tracer
}

// New creates a Dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	switch {
	case cfg.Registry == nil:
		return nil, errors.New("dispatch: registry is required")
	case cfg.Backend == nil:
		return nil, errors.New("dispatch: backend is required")
	case cfg.Gate == nil:
		return nil, errors.New("dispatch: gate is required")
	}

	if cfg.Resolver == nil {
		cfg.Resolver = pathexpr.NewResolver(nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NoopTracer()
	}

	return &Dispatcher{
		registry: cfg.Registry,
		backend:  cfg.Backend,
		gate:     cfg.Gate,
		resolver: cfg.Resolver,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger.With("component", "dispatch"),
		audit:    cfg.Audit,
		limiter:  cfg.Limiter,
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
	}, nil
}

// Registry returns the catalog the dispatcher resolves tools against.
func (d *Dispatcher) Registry() *catalog.Registry { return d.registry }

// Resolver returns the path-expression resolver used for batches.
func (d *Dispatcher) Resolver() *pathexpr.Resolver { return d.resolver }
