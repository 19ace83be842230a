package gateway

import (
	"net/http"
	"sync/atomic"
	"time"
)

// RequestCounters tracks gateway traffic with atomic counters. Prometheus
// metrics cover tool calls; these feed the /status summary.
type RequestCounters struct {
	requests     atomic.Int64
	clientErrors atomic.Int64
	serverErrors atomic.Int64
	totalLatency atomic.Int64 // nanoseconds
}

func (c *RequestCounters) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		c.record(sw.status, time.Since(start))
	})
}

func (c *RequestCounters) record(status int, latency time.Duration) {
	c.requests.Add(1)
	c.totalLatency.Add(int64(latency))
	switch {
	case status >= 500:
		c.serverErrors.Add(1)
	case status >= 400:
		c.clientErrors.Add(1)
	}
}

// Snapshot returns a point-in-time view of the counters.
func (c *RequestCounters) Snapshot() RequestSnapshot {
	n := c.requests.Load()
	snap := RequestSnapshot{
		Requests:     n,
		ClientErrors: c.clientErrors.Load(),
		ServerErrors: c.serverErrors.Load(),
	}
	if n > 0 {
		snap.AvgLatencyMS = float64(c.totalLatency.Load()) / float64(n) / float64(time.Millisecond)
	}
	return snap
}

// RequestSnapshot is a serializable view of RequestCounters.
type RequestSnapshot struct {
	Requests     int64   `json:"requests"`
	ClientErrors int64   `json:"client_errors"`
	ServerErrors int64   `json:"server_errors"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

// statusWriter captures the response status. It forwards Flush so the
// streamable MCP endpoint can still stream.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
