package gateway

import "net/http"

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version,omitempty"`
	Tools      int    `json:"tools"`
	Categories int    `json:"categories"`
}

func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:     "ok",
			Version:    g.deps.Version,
			Tools:      g.deps.Registry.Len(),
			Categories: len(g.deps.Registry.Categories()),
		})
	}
}
