// Package source reads unsynced punch batches from the attendance database
// and marks accepted transactions as synced.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/livinlefevreloca/biosync/internal/apperr"
)

// Procedures is the database collaborator. Implementations acquire a
// connection per call and release it on every path; ExecProcedure returns
// nil only after a successful commit.
type Procedures interface {
	QueryProcedure(ctx context.Context, name string, args ...sql.NamedArg) (sql.NullString, error)
	ExecProcedure(ctx context.Context, name string, args ...sql.NamedArg) error
}

// Batch is an already-serialized JSON fragment of punch records. It is
// never parsed here.
type Batch string

// RecordSource fetches punch batches
type RecordSource struct {
	config Config
	procs  Procedures
	logger *slog.Logger
}

// NewRecordSource creates a record source over procs
func NewRecordSource(config Config, procs Procedures, logger *slog.Logger) (*RecordSource, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &RecordSource{
		config: config,
		procs:  procs,
		logger: logger,
	}, nil
}

// FetchBatch calls the retrieval procedure and returns the first column of
// its first row. An empty Batch with a nil error means nothing to sync.
// Connectivity and procedure failures are wrapped in apperr.ErrSource.
func (s *RecordSource) FetchBatch(ctx context.Context) (Batch, error) {
	value, err := s.procs.QueryProcedure(ctx, s.config.Procedure,
		sql.Named(s.config.ModeParam, s.config.FetchMode))
	if err != nil {
		s.logger.Error("error fetching bio punches data", "error", err)
		return "", fmt.Errorf("%w: fetch bio punches data: %w", apperr.ErrSource, err)
	}

	if !value.Valid || value.String == "" {
		return "", nil
	}

	s.logger.Debug("fetched punch batch", "bytes", len(value.String))
	return Batch(value.String), nil
}
