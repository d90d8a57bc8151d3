package orchestrator

import (
	"context"
	"time"

	"github.com/livinlefevreloca/biosync/internal/source"
	"github.com/livinlefevreloca/biosync/internal/transmitter"
)

// Terminal run messages
const (
	MsgNoRecords         = "No record found for syncing."
	MsgNoTransactionIDs  = "API returned success but no transaction IDs."
	MsgAcknowledgeFailed = "Records synced but failed to update database status."
	MsgAlreadyRunning    = "A sync run is already in progress."
	msgAPIFailedFormat   = "API Sync failed. Message: %s"
	msgSyncedFormat      = "Successfully synced %d records."
	msgUnexpectedFormat  = "An unexpected error occurred: %v"
)

// Trigger identifies which execution context started a run
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// Result is the terminal outcome of one run. It is created once per run and
// never modified afterwards.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Report describes a finished run for observers such as the history syncer
type Report struct {
	RunID       string
	Trigger     Trigger
	StartedAt   time.Time
	CompletedAt time.Time
	Result      Result
	Records     int
}

// Observer is notified after every finished run. It must not block.
type Observer func(Report)

// Fetcher is the record source
type Fetcher interface {
	FetchBatch(ctx context.Context) (source.Batch, error)
}

// Sender is the transmitter
type Sender interface {
	Send(ctx context.Context, batch string) transmitter.Outcome
}

// Marker is the acknowledger
type Marker interface {
	MarkSynced(ctx context.Context, txnIDs []string) (bool, error)
}
