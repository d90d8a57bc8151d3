package db

import (
	"context"
	"time"
)

// SyncRun is one persisted sync run outcome
type SyncRun struct {
	RunID       string
	Trigger     string // "manual" or "scheduled"
	StartedAt   time.Time
	CompletedAt time.Time
	Success     bool
	Message     string
	Records     int
}

const historySchema = `
	CREATE TABLE IF NOT EXISTS sync_runs (
		run_id         TEXT PRIMARY KEY,
		trigger_source TEXT NOT NULL,
		started_at     TIMESTAMP NOT NULL,
		completed_at   TIMESTAMP NOT NULL,
		success        BOOLEAN NOT NULL,
		message        TEXT NOT NULL,
		records        INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at);
`

// EnsureHistorySchema creates the run history tables if they do not exist
func (db *DB) EnsureHistorySchema(ctx context.Context) error {
	_, err := db.ExecContext(ctx, historySchema)
	return err
}
