package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/flemzord/toolgate/internal/config"
	"github.com/flemzord/toolgate/internal/security"
)

// authBucket is the rate-limit key for authentication attempts.
const authBucket = "auth"

// authMiddleware validates a Bearer token or Basic credentials using
// constant-time comparison. Failures are audited. When limiter is set,
// attempts are rate limited in the "auth" bucket.
func authMiddleware(cfg config.AuthConfig, audit *security.AuditLogger, limiter *security.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := limiter.Allow(authBucket); err != nil {
				auditAuthFailure(audit, r, "rate limited")
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				auditAuthFailure(audit, r, "missing authorization header")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if cfg.BearerToken != "" {
				if token, ok := strings.CutPrefix(auth, "Bearer "); ok && constantTimeEqual(token, cfg.BearerToken) {
					next.ServeHTTP(w, r)
					return
				}
			}

			if cfg.BasicUser != "" && cfg.BasicPass != "" {
				user, pass, ok := r.BasicAuth()
				if ok && constantTimeEqual(user, cfg.BasicUser) && constantTimeEqual(pass, cfg.BasicPass) {
					next.ServeHTTP(w, r)
					return
				}
			}

			auditAuthFailure(audit, r, "invalid credentials")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
}

func auditAuthFailure(audit *security.AuditLogger, r *http.Request, detail string) {
	audit.Log(security.AuditEvent{
		Type:   security.EventAuthFailure,
		Detail: detail,
		Metadata: map[string]string{
			"remote_addr": r.RemoteAddr,
			"method":      r.Method,
			"path":        r.URL.Path,
		},
	})
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
