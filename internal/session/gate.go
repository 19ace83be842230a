package session

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flemzord/toolgate/internal/catalog"
)

// archiveTimeout bounds a single History.Archive call.
const archiveTimeout = 5 * time.Second

// GateConfig configures a Gate.
type GateConfig struct {
	// Timeout is the inactivity window after which the session is reset.
	Timeout time.Duration

	// ResourceValidity is how recent a catalog access must be to suppress
	// the staleness tip.
	ResourceValidity time.Duration

	// ExemptTools always pass. Nil selects catalog.SurfaceOperations().
	ExemptTools []string

	// Hints derive the suggested category in the first warning.
	Hints []Hint

	// CategoryOf is the fallback for Hints, usually Registry.CategoryOf.
	CategoryOf func(tool string) (string, bool)

	// History receives ended sessions. Empty sessions are not archived.
	History History

	// OnReset is called, outside the gate lock, with every archived record.
	OnReset func(Record)

	Logger *slog.Logger
	Now    func() time.Time
}

type state struct {
	id           string
	accessLog    map[string]time.Time
	usage        map[string]int
	start        time.Time
	lastActivity time.Time
	warned       bool
}

func newState(now time.Time) state {
	return state{
		id:           uuid.NewString(),
		accessLog:    make(map[string]time.Time),
		usage:        make(map[string]int),
		start:        now,
		lastActivity: now,
	}
}

func (s *state) empty() bool {
	return len(s.accessLog) == 0 && len(s.usage) == 0
}

func (s *state) calls() int {
	n := 0
	for _, c := range s.usage {
		n += c
	}
	return n
}

// followed reports whether discovery happened and no call was refused.
func (s *state) followed() bool {
	return len(s.accessLog) > 0 && !s.warned
}

func (s *state) record(end time.Time, reason Reason) Record {
	return Record{
		SessionID:         s.id,
		Start:             s.start,
		End:               end,
		Reason:            reason,
		ResourcesAccessed: len(s.accessLog),
		ToolCalls:         s.calls(),
		PerToolCounts:     maps.Clone(s.usage),
		WorkflowFollowed:  s.followed(),
	}
}

// Gate is the process-wide workflow gate. All operations are serialized.
type Gate struct {
	mu    sync.Mutex
	state state

	timeout    time.Duration
	validity   time.Duration
	exempt     map[string]struct{}
	hints      []compiledHint
	categoryOf func(string) (string, bool)
	history    History
	onReset    func(Record)
	logger     *slog.Logger
	now        func() time.Time
}

// NewGate creates a gate with a fresh session.
func NewGate(cfg GateConfig) (*Gate, error) {
	hints, err := compileHints(cfg.Hints)
	if err != nil {
		return nil, err
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ResourceValidity <= 0 {
		cfg.ResourceValidity = DefaultResourceValidity
	}
	if cfg.ExemptTools == nil {
		cfg.ExemptTools = catalog.SurfaceOperations()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	exempt := make(map[string]struct{}, len(cfg.ExemptTools))
	for _, name := range cfg.ExemptTools {
		exempt[name] = struct{}{}
	}

	return &Gate{
		state:      newState(cfg.Now()),
		timeout:    cfg.Timeout,
		validity:   cfg.ResourceValidity,
		exempt:     exempt,
		hints:      hints,
		categoryOf: cfg.CategoryOf,
		history:    cfg.History,
		onReset:    cfg.OnReset,
		logger:     cfg.Logger.With("component", "session"),
		now:        cfg.Now,
	}, nil
}

// expireLocked resets the session when it has been idle longer than the
// timeout. It returns the ended session for archiving, if any.
func (g *Gate) expireLocked(now time.Time, reason Reason) *Record {
	if now.Sub(g.state.lastActivity) <= g.timeout {
		return nil
	}
	return g.resetLocked(now, reason)
}

func (g *Gate) resetLocked(now time.Time, reason Reason) *Record {
	var ended *Record
	if !g.state.empty() {
		rec := g.state.record(g.state.lastActivity, reason)
		ended = &rec
	}
	g.state = newState(now)
	return ended
}

// finish archives an ended session. It must be called without the lock held.
func (g *Gate) finish(ended *Record) {
	if ended == nil {
		return
	}
	g.logger.Info("session ended",
		"session_id", ended.SessionID,
		"reason", string(ended.Reason),
		"tool_calls", ended.ToolCalls,
		"resources", ended.ResourcesAccessed,
	)
	if g.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		if err := g.history.Archive(ctx, *ended); err != nil {
			g.logger.Warn("session archive failed", "session_id", ended.SessionID, "error", err)
		}
		cancel()
	}
	if g.onReset != nil {
		g.onReset(*ended)
	}
}

// RecordCatalogAccess stores the access time of a catalog resource.
// It implements catalog.AccessRecorder.
func (g *Gate) RecordCatalogAccess(resourceKey string) {
	g.mu.Lock()
	now := g.now()
	ended := g.expireLocked(now, ReasonTimeout)
	g.state.accessLog[resourceKey] = now
	g.state.lastActivity = now
	g.mu.Unlock()

	g.finish(ended)
}

// RecordToolUsage counts a tool call.
func (g *Gate) RecordToolUsage(tool string) {
	g.mu.Lock()
	now := g.now()
	ended := g.expireLocked(now, ReasonTimeout)
	g.state.usage[tool]++
	g.state.lastActivity = now
	g.mu.Unlock()

	g.finish(ended)
}

// Check decides whether a tool may run in the current session.
func (g *Gate) Check(tool string) Decision {
	g.mu.Lock()
	now := g.now()
	ended := g.expireLocked(now, ReasonTimeout)
	d := g.checkLocked(tool, now)
	g.mu.Unlock()

	g.finish(ended)
	return d
}

func (g *Gate) checkLocked(tool string, now time.Time) Decision {
	if _, ok := g.exempt[tool]; ok {
		return Decision{Allowed: true}
	}

	if len(g.state.accessLog) > 0 {
		for _, at := range g.state.accessLog {
			if now.Sub(at) <= g.validity {
				return Decision{Allowed: true}
			}
		}
		return Decision{Allowed: true, Tip: staleTip(g.validity.String())}
	}

	if !g.state.warned {
		g.state.warned = true
		return Decision{Warning: g.firstWarning(tool)}
	}
	return Decision{Warning: repeatWarning(tool)}
}

// IsExempt reports whether tool bypasses the gate.
func (g *Gate) IsExempt(tool string) bool {
	_, ok := g.exempt[tool]
	return ok
}

// Statistics returns a snapshot of the current session.
func (g *Gate) Statistics() Statistics {
	g.mu.Lock()
	now := g.now()
	ended := g.expireLocked(now, ReasonTimeout)
	s := g.state
	stats := Statistics{
		SessionID:                 s.id,
		SessionStart:              s.start,
		SessionDuration:           Duration(now.Sub(s.start)),
		DistinctResourcesAccessed: len(s.accessLog),
		TotalToolCalls:            s.calls(),
		PerToolCounts:             maps.Clone(s.usage),
		WorkflowFollowed:          s.followed(),
	}
	g.mu.Unlock()

	g.finish(ended)
	return stats
}

// Sweep ends the session if it has been idle past the timeout. The
// scheduler calls it so idle sessions are archived promptly.
func (g *Gate) Sweep() bool {
	g.mu.Lock()
	ended := g.expireLocked(g.now(), ReasonSweep)
	g.mu.Unlock()

	g.finish(ended)
	return ended != nil
}

// Reset ends the current session unconditionally and starts a new one.
func (g *Gate) Reset() {
	g.mu.Lock()
	ended := g.resetLocked(g.now(), ReasonReset)
	g.mu.Unlock()

	g.finish(ended)
}

// Close archives the current session. The gate stays usable.
func (g *Gate) Close() error {
	g.mu.Lock()
	ended := g.resetLocked(g.now(), ReasonClose)
	g.mu.Unlock()

	g.finish(ended)
	return nil
}
