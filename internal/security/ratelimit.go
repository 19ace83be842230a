package security

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is wrapped by every *RateLimitError.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitError reports which window refused a call and when a slot frees.
type RateLimitError struct {
	Scope      string
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %s allows %d calls per minute, retry in %s",
		ErrRateLimited, e.Scope, e.Limit, e.RetryAfter.Round(time.Millisecond))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// RateLimitConfig sets per-minute ceilings. Zero disables a limit.
type RateLimitConfig struct {
	ToolCallsPerMin int            `yaml:"tool_calls_per_min"`
	PerTool         map[string]int `yaml:"per_tool"`
}

// RateLimiter is a sliding-window limiter over tool calls: one global
// window plus an optional window per tool. Safe for concurrent use.
type RateLimiter struct {
	mu      sync.Mutex
	global  *window
	perTool map[string]*window
	now     func() time.Time
}

type window struct {
	limit  int
	span   time.Duration
	events []time.Time
}

// NewRateLimiter creates a limiter. It returns nil when no limit is set;
// a nil *RateLimiter allows everything.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{perTool: make(map[string]*window), now: time.Now}
	if cfg.ToolCallsPerMin > 0 {
		rl.global = &window{limit: cfg.ToolCallsPerMin, span: time.Minute}
	}
	for tool, n := range cfg.PerTool {
		if n > 0 {
			rl.perTool[tool] = &window{limit: n, span: time.Minute}
		}
	}
	if rl.global == nil && len(rl.perTool) == 0 {
		return nil
	}
	return rl
}

// Allow admits one call of tool, or returns a *RateLimitError. A refused
// call consumes no slot in any window.
func (rl *RateLimiter) Allow(tool string) error {
	if rl == nil {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	tw := rl.perTool[tool]

	if err := rl.global.admit(now, "all tools"); err != nil {
		return err
	}
	if err := tw.admit(now, tool); err != nil {
		return err
	}

	rl.global.add(now)
	tw.add(now)
	return nil
}

func (w *window) admit(now time.Time, scope string) error {
	if w == nil {
		return nil
	}
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.events) && !w.events[i].After(cutoff) {
		i++
	}
	w.events = w.events[i:]

	if len(w.events) < w.limit {
		return nil
	}
	return &RateLimitError{
		Scope:      scope,
		Limit:      w.limit,
		RetryAfter: w.events[0].Add(w.span).Sub(now),
	}
}

func (w *window) add(now time.Time) {
	if w != nil {
		w.events = append(w.events, now)
	}
}
