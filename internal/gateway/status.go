package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/toolgate/internal/session"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Version       string             `json:"version,omitempty"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	HTTP          RequestSnapshot    `json:"http"`
	Session       session.Statistics `json:"session"`
}

func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		g.mu.Lock()
		started := g.startedAt
		g.mu.Unlock()

		writeJSON(w, http.StatusOK, StatusResponse{
			Version:       g.deps.Version,
			UptimeSeconds: int64(time.Since(started) / time.Second),
			HTTP:          g.requests.Snapshot(),
			Session:       g.deps.Sessions.Statistics(),
		})
	}
}
