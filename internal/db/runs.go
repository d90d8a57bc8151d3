package db

import (
	"context"
	"database/sql"
	"errors"
)

// GetSyncRun retrieves a sync run by its run ID
func (db *DB) GetSyncRun(ctx context.Context, runID string) (*SyncRun, error) {
	run := &SyncRun{}

	query := `
		SELECT run_id, trigger_source, started_at, completed_at, success, message, records
		FROM sync_runs
		WHERE run_id = ?
	`

	err := db.QueryRowContext(ctx, query, runID).Scan(
		&run.RunID,
		&run.Trigger,
		&run.StartedAt,
		&run.CompletedAt,
		&run.Success,
		&run.Message,
		&run.Records,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return run, nil
}

// ListSyncRuns returns the most recent runs, newest first
func (db *DB) ListSyncRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	query := `
		SELECT run_id, trigger_source, started_at, completed_at, success, message, records
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		err := rows.Scan(
			&run.RunID,
			&run.Trigger,
			&run.StartedAt,
			&run.CompletedAt,
			&run.Success,
			&run.Message,
			&run.Records,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	// Return empty slice instead of nil
	if runs == nil {
		runs = []SyncRun{}
	}

	return runs, nil
}

// WriteSyncRuns inserts a batch of runs in one transaction
func (db *DB) WriteSyncRuns(ctx context.Context, runs []SyncRun) error {
	if len(runs) == 0 {
		return nil
	}

	return db.WithTransaction(ctx, func(tx *Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sync_runs (run_id, trigger_source, started_at, completed_at, success, message, records)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, run := range runs {
			if _, err := stmt.ExecContext(ctx,
				run.RunID,
				run.Trigger,
				run.StartedAt,
				run.CompletedAt,
				run.Success,
				run.Message,
				run.Records,
			); err != nil {
				return err
			}
		}
		return nil
	})
}
