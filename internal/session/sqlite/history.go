package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flemzord/toolgate/internal/session"
)

type historyStore struct {
	db *sql.DB
}

// Archive implements session.History. Archiving a session twice replaces
// the earlier row.
func (h *historyStore) Archive(ctx context.Context, rec session.Record) error {
	perTool := rec.PerToolCounts
	if perTool == nil {
		perTool = map[string]int{}
	}
	perToolJSON, err := json.Marshal(perTool)
	if err != nil {
		return fmt.Errorf("sqlite: marshal per_tool: %w", err)
	}

	followed := 0
	if rec.WorkflowFollowed {
		followed = 1
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions
			(id, started_at, ended_at, reason, resources, tool_calls, per_tool, workflow_followed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID,
		rec.Start.UTC().Format(time.RFC3339Nano),
		rec.End.UTC().Format(time.RFC3339Nano),
		string(rec.Reason),
		rec.ResourcesAccessed,
		rec.ToolCalls,
		string(perToolJSON),
		followed,
	)
	if err != nil {
		return fmt.Errorf("sqlite: archive session: %w", err)
	}
	return nil
}

// Recent implements session.History.
func (h *historyStore) Recent(ctx context.Context, n int) ([]session.Record, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, started_at, ended_at, reason, resources, tool_calls, per_tool, workflow_followed
		FROM sessions
		ORDER BY ended_at DESC, rowid DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []session.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: recent sessions rows: %w", err)
	}
	return recs, nil
}

func scanRecord(rows *sql.Rows) (session.Record, error) {
	var (
		rec             session.Record
		start, end      string
		reason, perTool string
		followed        int
	)
	if err := rows.Scan(&rec.SessionID, &start, &end, &reason,
		&rec.ResourcesAccessed, &rec.ToolCalls, &perTool, &followed); err != nil {
		return session.Record{}, fmt.Errorf("sqlite: scan session: %w", err)
	}

	var err error
	if rec.Start, err = time.Parse(time.RFC3339Nano, start); err != nil {
		return session.Record{}, fmt.Errorf("sqlite: parse started_at: %w", err)
	}
	if rec.End, err = time.Parse(time.RFC3339Nano, end); err != nil {
		return session.Record{}, fmt.Errorf("sqlite: parse ended_at: %w", err)
	}
	if err := json.Unmarshal([]byte(perTool), &rec.PerToolCounts); err != nil {
		return session.Record{}, fmt.Errorf("sqlite: unmarshal per_tool: %w", err)
	}
	rec.Reason = session.Reason(reason)
	rec.WorkflowFollowed = followed != 0
	return rec, nil
}

// Prune implements session.Pruner.
func (h *historyStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := h.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE rowid NOT IN (
			SELECT rowid FROM sessions ORDER BY ended_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune rows affected: %w", err)
	}
	return int(n), nil
}
