package syncer

import (
	"context"

	"github.com/livinlefevreloca/biosync/internal/db"
)

// HistoryWriter persists batches of run records. *db.DB implements it.
type HistoryWriter interface {
	WriteSyncRuns(ctx context.Context, runs []db.SyncRun) error
}

// Stats provides current syncer statistics
type Stats struct {
	BufferedRuns int
	WrittenRuns  int64
	FailedRuns   int64
	DroppedRuns  int64
}
