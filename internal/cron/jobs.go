package cron

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flemzord/toolgate/internal/session"
)

// Sweeper ends the current session when it has been idle too long.
// *session.Gate implements it.
type Sweeper interface {
	Sweep() bool
}

// SessionSweepJob archives idle sessions without waiting for the next call.
type SessionSweepJob struct {
	Gate         Sweeper
	Logger       *slog.Logger
	ScheduleExpr string // empty = "*/5 * * * *"
}

var _ Job = (*SessionSweepJob)(nil)

// Name implements Job.
func (j *SessionSweepJob) Name() string { return "session_sweep" }

// Schedule implements Job.
func (j *SessionSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run implements Job.
func (j *SessionSweepJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cron: session sweep: %w", err)
	}
	if j.Gate.Sweep() && j.Logger != nil {
		j.Logger.Info("idle session swept")
	}
	return nil
}

// HistoryPruneJob trims the session archive to its most recent Keep records.
type HistoryPruneJob struct {
	History      session.Pruner
	Keep         int
	Logger       *slog.Logger
	ScheduleExpr string // empty = "0 * * * *"
}

var _ Job = (*HistoryPruneJob)(nil)

// Name implements Job.
func (j *HistoryPruneJob) Name() string { return "history_prune" }

// Schedule implements Job.
func (j *HistoryPruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 * * * *"
}

// Run implements Job.
func (j *HistoryPruneJob) Run(ctx context.Context) error {
	n, err := j.History.Prune(ctx, j.Keep)
	if err != nil {
		return fmt.Errorf("cron: history prune: %w", err)
	}
	if n > 0 && j.Logger != nil {
		j.Logger.Info("pruned session history", "deleted", n, "kept", j.Keep)
	}
	return nil
}
