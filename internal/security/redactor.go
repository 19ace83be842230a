// Package security holds the gateway's protective plumbing: secret
// redaction for logs and audit records, the JSONL audit trail, and the
// sliding-window limiter for tool calls.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder replaces every redacted value.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches parameter and header names whose values are
// secrets regardless of their content.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|passw(or)?d|api[-_]?key|credential|authorization|cookie)`)

// Redactor scrubs secrets from strings and parameter trees. It knows common
// token formats and literal values registered at runtime (backend headers,
// the gateway bearer token). Safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor returns a Redactor loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: DefaultPatterns()}
}

// AddPattern registers an extra pattern.
func (r *Redactor) AddPattern(p *regexp.Regexp) {
	r.mu.Lock()
	r.patterns = append(r.patterns, p)
	r.mu.Unlock()
}

// AddLiteral registers a value to scrub wherever it appears. Values shorter
// than four characters are ignored; they would mangle ordinary text.
func (r *Redactor) AddLiteral(secret string) {
	if len(secret) < 4 {
		return
	}
	r.mu.Lock()
	r.literals = append(r.literals, secret)
	r.mu.Unlock()
}

// Redact scrubs s.
func (r *Redactor) Redact(s string) string {
	if r == nil || s == "" {
		return s
	}

	r.mu.RLock()
	patterns, literals := r.patterns, r.literals
	r.mu.RUnlock()

	for _, lit := range literals {
		s = strings.ReplaceAll(s, lit, RedactPlaceholder)
	}
	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	return s
}

// IsSecretKey reports whether a field name denotes a secret value.
func IsSecretKey(name string) bool {
	return secretKeyPattern.MatchString(name)
}

// RedactParams returns a scrubbed deep copy of a parameter tree. Values
// under secret-looking keys are replaced outright; other strings go
// through Redact. The input is not modified.
func (r *Redactor) RedactParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if IsSecretKey(k) && v != nil {
			out[k] = RedactPlaceholder
			continue
		}
		out[k] = r.redactValue(v)
	}
	return out
}

func (r *Redactor) redactValue(v any) any {
	switch t := v.(type) {
	case string:
		return r.Redact(t)
	case map[string]any:
		return r.RedactParams(t)
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = r.redactValue(el)
		}
		return out
	default:
		return v
	}
}

// DefaultPatterns returns patterns for bearer credentials and well-known
// token formats.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bbearer\s+[a-z0-9._~+/=-]{8,}`),
		regexp.MustCompile(`\beyJ[a-zA-Z0-9_-]{8,}\.[a-zA-Z0-9_-]{8,}\.[a-zA-Z0-9_-]{8,}`),
		regexp.MustCompile(`\bsk-(ant-)?[a-zA-Z0-9-]{20,}`),
		regexp.MustCompile(`\b(ghp|gho|ghs|ghu)_[a-zA-Z0-9]{20,}|\bgithub_pat_[a-zA-Z0-9_]{20,}`),
		regexp.MustCompile(`\bAKIA[A-Z0-9]{16}\b`),
		regexp.MustCompile(`\bxox[bpas]-[0-9A-Za-z-]{10,}`),
		regexp.MustCompile(`://[^/\s:@]+:[^/\s@]+@`),
	}
}
