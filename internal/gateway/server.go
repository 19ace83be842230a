package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(g.requests.middleware)

	// Public.
	r.Get("/health", g.handleHealth())
	if g.deps.Metrics != nil {
		r.Handle("/metrics", g.deps.Metrics.Handler())
	}
	if g.deps.MCP != nil {
		r.Handle("/mcp", g.deps.MCP)
	}

	// Admin endpoints are not mounted when no auth is configured.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.deps.Audit, g.deps.AuthLimiter))
			r.Get("/status", g.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Get("/session", g.handleGetSession())
				r.Delete("/session", g.handleResetSession())
				r.Get("/sessions", g.handleListSessions())
				r.Get("/catalog", g.handleListCategories())
				r.Get("/catalog/{category}", g.handleListTools())
				r.Get("/tools/{name}", g.handleGetSchema())
			})
		})
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
