package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/flemzord/toolgate/internal/backend"
	"github.com/flemzord/toolgate/internal/catalog"
	"github.com/flemzord/toolgate/internal/config"
	"github.com/flemzord/toolgate/internal/core"
	"github.com/flemzord/toolgate/internal/cron"
	"github.com/flemzord/toolgate/internal/dispatch"
	"github.com/flemzord/toolgate/internal/gateway"
	"github.com/flemzord/toolgate/internal/mcpserver"
	"github.com/flemzord/toolgate/internal/observability"
	"github.com/flemzord/toolgate/internal/pathexpr"
	"github.com/flemzord/toolgate/internal/security"
	"github.com/flemzord/toolgate/internal/session"
	"github.com/flemzord/toolgate/internal/session/sqlite"
)

// authAttemptsPerMin bounds admin authentication attempts.
const authAttemptsPerMin = 30

// Runtime is a fully wired gateway. App owns the lifecycle of every
// component; the other fields are exposed for the CLI and for tests.
type Runtime struct {
	App        *core.App
	Registry   *catalog.Registry
	Gate       *session.Gate
	Dispatcher *dispatch.Dispatcher
	MCP        *mcpserver.Server
	Scheduler  *cron.Scheduler
	Metrics    *observability.Metrics

	// Gateway is nil when the HTTP surface is not wanted.
	Gateway *gateway.Gateway
}

// BuildOptions tune Build.
type BuildOptions struct {
	Logger   *slog.Logger
	Redactor *security.Redactor
	Version  string

	// Backend replaces the configured backend. Tests use it.
	Backend backend.Backend

	// WithGateway mounts the HTTP gateway.
	WithGateway bool
}

// Build wires every component described by cfg into a core.App. Nothing is
// started. On error, resources acquired so far are released.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (rt *Runtime, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app := core.NewApp(logger)
	app.SetStopTimeout(cfg.Gateway.ShutdownTimeout)

	// Resources are added as they are acquired. Stop-only components count
	// as started, so a failed build releases them with Stop.
	defer func() {
		if err != nil {
			app.Stop()
		}
	}()

	manifest, err := catalog.LoadManifest(cfg.Catalog.Manifest)
	if err != nil {
		return nil, err
	}
	registry, err := manifest.Build()
	if err != nil {
		return nil, err
	}
	logger.Info("catalog loaded",
		"tools", registry.Len(),
		"categories", len(registry.Categories()),
		"manifest", cfg.Catalog.Manifest,
	)

	tp, err := observability.NewTracerProvider(ctx, observability.TracingConfig{
		Enabled:        cfg.Tracing.Enabled,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRate:     cfg.Tracing.SampleRate,
		ServiceVersion: opts.Version,
	})
	if err != nil {
		return nil, err
	}
	if err := app.Add("tracing", core.StopFunc(tp.Shutdown)); err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()

	audit, err := openAudit(app, cfg.Audit, opts.Redactor)
	if err != nil {
		return nil, err
	}

	history, pruner, err := openHistory(ctx, app, cfg.History)
	if err != nil {
		return nil, err
	}

	be := opts.Backend
	if be == nil {
		be, err = newBackend(cfg.Backend, logger)
		if err != nil {
			return nil, err
		}
	}
	if err := app.Add("backend", core.CloseFunc(be.Close)); err != nil {
		return nil, err
	}

	gate, err := session.NewGate(session.GateConfig{
		Timeout:          cfg.Session.Timeout,
		ResourceValidity: cfg.Session.ResourceValidity,
		ExemptTools:      cfg.Session.ExemptTools,
		Hints:            cfg.Session.Hints,
		CategoryOf:       registry.CategoryOf,
		History:          history,
		OnReset:          sessionResetObserver(metrics, audit),
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	if err := app.Add("session", core.CloseFunc(gate.Close)); err != nil {
		return nil, err
	}

	dispatcher, err := dispatch.New(dispatch.Config{
		Registry: registry,
		Backend:  be,
		Gate:     gate,
		Resolver: pathexpr.NewResolver(cfg.Session.PluralSuffixes),
		Timeout:  cfg.Backend.Timeout,
		Logger:   logger,
		Audit:    audit,
		Limiter:  security.NewRateLimiter(cfg.RateLimits),
		Metrics:  metrics,
		Tracer:   tp.Tracer(),
	})
	if err != nil {
		return nil, err
	}

	mcpSrv, err := mcpserver.New(mcpserver.Config{
		Version:    opts.Version,
		Dispatcher: dispatcher,
		Gate:       gate,
		Logger:     logger,
		Metrics:    metrics,
		Audit:      audit,
	})
	if err != nil {
		return nil, err
	}

	scheduler := cron.NewScheduler(logger)
	if err := scheduler.Register(&cron.SessionSweepJob{
		Gate:         gate,
		Logger:       logger,
		ScheduleExpr: cfg.Session.SweepSchedule,
	}); err != nil {
		return nil, err
	}
	if pruner != nil {
		if err := scheduler.Register(&cron.HistoryPruneJob{
			History: pruner,
			Keep:    cfg.History.Capacity,
			Logger:  logger,
		}); err != nil {
			return nil, err
		}
	}
	if err := app.Add("scheduler", scheduler); err != nil {
		return nil, err
	}

	rt = &Runtime{
		App:        app,
		Registry:   registry,
		Gate:       gate,
		Dispatcher: dispatcher,
		MCP:        mcpSrv,
		Scheduler:  scheduler,
		Metrics:    metrics,
	}

	if opts.WithGateway {
		gw, err := gateway.New(cfg.Gateway, gateway.Deps{
			Logger:   logger,
			Version:  opts.Version,
			Registry: registry,
			Sessions: gate,
			History:  history,
			Metrics:  metrics,
			MCP:      mcpSrv.HTTPHandler(),
			Audit:    audit,
			AuthLimiter: security.NewRateLimiter(security.RateLimitConfig{
				PerTool: map[string]int{"auth": authAttemptsPerMin},
			}),
		})
		if err != nil {
			return nil, err
		}
		if err := app.Add("gateway", gw); err != nil {
			return nil, err
		}
		rt.Gateway = gw
	}

	return rt, nil
}

func openAudit(app *core.App, cfg config.AuditConfig, redactor *security.Redactor) (*security.AuditLogger, error) {
	if cfg.Path == "" {
		return nil, nil
	}
	audit, closer, err := security.OpenAuditFile(cfg.Path, redactor)
	if err != nil {
		return nil, err
	}
	if err := app.Add("audit", core.CloseFunc(closer.Close)); err != nil {
		_ = closer.Close()
		return nil, err
	}
	return audit, nil
}

// openHistory returns the session archive and, when the store does not
// bound itself, the pruner the scheduler should drive.
func openHistory(ctx context.Context, app *core.App, cfg config.HistoryConfig) (session.History, session.Pruner, error) {
	switch cfg.Driver {
	case config.HistoryMemory, "":
		return session.NewMemoryHistory(cfg.Capacity), nil, nil
	case config.HistorySQLite:
		history, db, err := sqlite.OpenHistory(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := app.Add("history", core.CloseFunc(db.Close)); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		pruner, _ := history.(session.Pruner)
		return history, pruner, nil
	default:
		return nil, nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
	}
}

func newBackend(cfg config.BackendConfig, logger *slog.Logger) (backend.Backend, error) {
	limits := security.PayloadLimits{MaxSize: cfg.MaxReplyBytes, MaxDepth: cfg.MaxReplyDepth}
	switch cfg.Kind {
	case config.BackendHTTP:
		return backend.NewHTTP(backend.HTTPConfig{URL: cfg.URL, Headers: cfg.Headers, Limits: limits})
	case config.BackendWebSocket:
		return backend.NewWebSocket(backend.WebSocketConfig{
			URL:         cfg.URL,
			Headers:     cfg.Headers,
			DialTimeout: cfg.DialTimeout,
			Limits:      limits,
			Logger:      logger,
		})
	default:
		return nil, errors.New("unknown backend kind " + strconv.Quote(cfg.Kind))
	}
}

// sessionResetObserver feeds ended sessions to metrics and the audit trail.
func sessionResetObserver(metrics *observability.Metrics, audit *security.AuditLogger) func(session.Record) {
	return func(rec session.Record) {
		metrics.SessionReset(string(rec.Reason))
		audit.Log(security.AuditEvent{
			Type:      security.EventSessionReset,
			SessionID: rec.SessionID,
			Outcome:   string(rec.Reason),
			Metadata: map[string]string{
				"tool_calls":        strconv.Itoa(rec.ToolCalls),
				"resources":         strconv.Itoa(rec.ResourcesAccessed),
				"workflow_followed": strconv.FormatBool(rec.WorkflowFollowed),
			},
		})
	}
}
