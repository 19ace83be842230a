// Package gateway serves toolgate over HTTP: the streamable MCP endpoint,
// health and Prometheus metrics, and an authenticated admin API over the
// workflow gate and the catalog. It binds to loopback by default.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/flemzord/toolgate/internal/catalog"
	"github.com/flemzord/toolgate/internal/config"
	"github.com/flemzord/toolgate/internal/observability"
	"github.com/flemzord/toolgate/internal/security"
	"github.com/flemzord/toolgate/internal/session"
)

// SessionAdmin is the part of the workflow gate exposed to administrators.
type SessionAdmin interface {
	Statistics() session.Statistics
	Reset()
}

// Deps are the collaborators the gateway serves.
type Deps struct {
	Logger   *slog.Logger
	Version  string
	Registry *catalog.Registry
	Sessions SessionAdmin
	History  session.History // optional
	Metrics  *observability.Metrics
	MCP      http.Handler // optional

	Audit       *security.AuditLogger
	AuthLimiter *security.RateLimiter
}

// Gateway is the HTTP server. It implements core.Starter and core.Stopper.
type Gateway struct {
	config   config.GatewayConfig
	deps     Deps
	logger   *slog.Logger
	requests *RequestCounters
	handler  http.Handler

	mu        sync.Mutex
	server    *http.Server
	addr      net.Addr
	startedAt time.Time
}

// New creates a gateway. Registry and Sessions are required.
func New(cfg config.GatewayConfig, deps Deps) (*Gateway, error) {
	if deps.Registry == nil || deps.Sessions == nil {
		return nil, errors.New("gateway: registry and sessions are required")
	}
	if _, err := net.ResolveTCPAddr("tcp", cfg.Bind); err != nil {
		return nil, fmt.Errorf("gateway: invalid bind address %q: %w", cfg.Bind, err)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	g := &Gateway{
		config:    cfg,
		deps:      deps,
		logger:    deps.Logger.With("component", "gateway"),
		requests:  &RequestCounters{},
		startedAt: time.Now(),
	}
	g.handler = g.buildRouter()
	return g, nil
}

// Handler returns the routed HTTP handler.
func (g *Gateway) Handler() http.Handler { return g.handler }

// Addr returns the listening address once started.
func (g *Gateway) Addr() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.addr == nil {
		return ""
	}
	return g.addr.String()
}

// Start implements core.Starter.
func (g *Gateway) Start() error {
	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}

	srv := &http.Server{
		Handler:      g.handler,
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	g.mu.Lock()
	g.server = srv
	g.addr = ln.Addr()
	g.startedAt = time.Now()
	g.mu.Unlock()

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()
	return nil
}

// Stop implements core.Stopper.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	srv := g.server
	g.mu.Unlock()
	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return srv.Shutdown(shutdownCtx)
}
