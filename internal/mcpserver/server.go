// Package mcpserver exposes the gateway operations as MCP tools.
//
// The same server is reachable over stdio (one client, the parent process)
// and over streamable HTTP mounted on the gateway at /mcp.
package mcpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/toolgate/internal/catalog"
	"github.com/flemzord/toolgate/internal/dispatch"
	"github.com/flemzord/toolgate/internal/observability"
	"github.com/flemzord/toolgate/internal/security"
	"github.com/flemzord/toolgate/internal/session"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "toolgate"

// Gate is the part of the workflow gate the MCP surface needs: catalog
// tools record discovery and session_stats reports on it.
type Gate interface {
	catalog.AccessRecorder
	Statistics() session.Statistics
}

// Config configures a Server. Dispatcher and Gate are required.
type Config struct {
	Version    string
	Dispatcher *dispatch.Dispatcher
	Gate       Gate

	Logger  *slog.Logger
	Metrics *observability.Metrics
	Audit   *security.AuditLogger
}

// Server owns the MCP server and its tool handlers.
type Server struct {
	mcp        *server.MCPServer
	query      *catalog.Query
	dispatcher *dispatch.Dispatcher
	gate       Gate
	logger     *slog.Logger
	metrics    *observability.Metrics
	audit      *security.AuditLogger
	tools      []string
}

// New builds the MCP server and registers every surface operation.
func New(cfg Config) (*Server, error) {
	if cfg.Dispatcher == nil {
		return nil, errors.New("mcpserver: dispatcher is required")
	}
	if cfg.Gate == nil {
		return nil, errors.New("mcpserver: gate is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			cfg.Version,
			server.WithToolCapabilities(true),
			server.WithLogging(),
		),
		query:      catalog.NewQuery(cfg.Dispatcher.Registry(), cfg.Gate),
		dispatcher: cfg.Dispatcher,
		gate:       cfg.Gate,
		logger:     cfg.Logger.With("component", "mcp"),
		metrics:    cfg.Metrics,
		audit:      cfg.Audit,
	}
	s.registerTools()
	return s, nil
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Tools returns the registered tool names in registration order.
func (s *Server) Tools() []string { return append([]string(nil), s.tools...) }

// HTTPHandler serves the streamable HTTP transport. Sessions are not
// tracked per client: the workflow gate is process-wide.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp, server.WithStateLess(true))
}

// ServeStdio speaks MCP over in/out until ctx is cancelled or in reaches
// EOF. Protocol errors are logged through the server logger.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("serving MCP over stdio", "tools", len(s.tools))
	err := stdio.Listen(ctx, in, out)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
