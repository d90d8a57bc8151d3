package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/livinlefevreloca/biosync/internal/apperr"
)

// Acknowledger marks transactions the remote API accepted as synced
type Acknowledger struct {
	config Config
	procs  Procedures
	logger *slog.Logger
}

// NewAcknowledger creates an acknowledger over procs
func NewAcknowledger(config Config, procs Procedures, logger *slog.Logger) (*Acknowledger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Acknowledger{
		config: config,
		procs:  procs,
		logger: logger,
	}, nil
}

// MarkSynced calls the update procedure with txnIDs joined into a single
// argument and commits. It returns true only for a committed write.
func (a *Acknowledger) MarkSynced(ctx context.Context, txnIDs []string) (bool, error) {
	if len(txnIDs) == 0 {
		return false, nil
	}

	err := a.procs.ExecProcedure(ctx, a.config.Procedure,
		sql.Named(a.config.ModeParam, a.config.UpdateMode),
		sql.Named(a.config.TxnIDsParam, JoinTxnIDs(txnIDs, a.config.TxnIDSeparator)))
	if err != nil {
		a.logger.Error("error updating sync status", "error", err)
		return false, fmt.Errorf("%w: update sync status: %w", apperr.ErrSource, err)
	}

	return true, nil
}

// JoinTxnIDs serializes ids into the delimited form the update procedure expects
func JoinTxnIDs(ids []string, sep string) string {
	return strings.Join(ids, sep)
}
