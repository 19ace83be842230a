package gateway

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/toolgate/internal/catalog"
	"github.com/flemzord/toolgate/internal/session"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
	historyTimeout      = 5 * time.Second
)

// adminQuery answers catalog questions without touching the workflow gate:
// administrators browsing the catalog must not unlock a client session.
func (g *Gateway) adminQuery() *catalog.Query {
	return catalog.NewQuery(g.deps.Registry, nil)
}

func (g *Gateway) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, g.deps.Sessions.Statistics())
	}
}

func (g *Gateway) handleResetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		g.deps.Sessions.Reset()
		g.logger.Info("session reset by administrator")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (g *Gateway) handleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		records := []session.Record{}
		if g.deps.History != nil {
			ctx, cancel := context.WithTimeout(r.Context(), historyTimeout)
			defer cancel()
			recs, err := g.deps.History.Recent(ctx, limit)
			if err != nil {
				g.logger.Error("reading session history", "error", err)
				writeError(w, http.StatusInternalServerError, "session history unavailable")
				return
			}
			records = append(records, recs...)
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func (g *Gateway) handleListCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, g.adminQuery().ListCategories())
	}
}

func (g *Gateway) handleListTools() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := chi.URLParam(r, "category")
		names := g.adminQuery().ListToolNames([]string{category})
		tools, ok := names.Lookup(category)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown category "+strconv.Quote(category))
			return
		}
		writeJSON(w, http.StatusOK, tools)
	}
}

func (g *Gateway) handleGetSchema() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		schemas := g.adminQuery().GetToolSchemas([]string{name})
		schema, ok := schemas.Lookup(name)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown tool "+strconv.Quote(name))
			return
		}
		desc, _ := g.deps.Registry.Get(name)
		writeJSON(w, http.StatusOK, map[string]any{
			"name":        name,
			"category":    desc.Category,
			"description": desc.Description,
			"version":     schema.Version,
			"params":      schema,
		})
	}
}
