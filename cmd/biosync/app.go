package main

import (
	"context"
	"fmt"
	"io"

	"github.com/livinlefevreloca/biosync/internal/apperr"
	"github.com/livinlefevreloca/biosync/internal/config"
	"github.com/livinlefevreloca/biosync/internal/db"
	"github.com/livinlefevreloca/biosync/internal/logging"
	"github.com/livinlefevreloca/biosync/internal/orchestrator"
	"github.com/livinlefevreloca/biosync/internal/source"
	"github.com/livinlefevreloca/biosync/internal/syncer"
	"github.com/livinlefevreloca/biosync/internal/transmitter"
)

// app holds the components assembled from one configuration
type app struct {
	cfg    *config.Config
	logger *logging.Logger

	source  *db.DB
	history *db.DB
	syncer  *syncer.Syncer
	engine  *orchestrator.Orchestrator
}

func newApp(cfg *config.Config, logOut io.Writer) (*app, error) {
	logger, err := logging.New(cfg.Logging, logOut)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrConfig, err)
	}

	return &app{cfg: cfg, logger: logger}, nil
}

// openSource connects to the attendance database
func (a *app) openSource() error {
	a.logger.Info("connecting to database", "driver", a.cfg.Source.Driver, "server", a.cfg.Source.Server)

	source, err := db.OpenWithConfig(a.cfg.Source)
	if err != nil {
		return fmt.Errorf("%w: connect to database: %w", apperr.ErrSource, err)
	}
	a.source = source
	return nil
}

// buildEngine assembles the sync pipeline. API settings are checked first
// so a misconfigured engine fails before touching the database.
func (a *app) buildEngine(ctx context.Context) error {
	logger := a.logger.Logger

	client, err := transmitter.New(a.cfg.API, logger)
	if err != nil {
		return err
	}

	if err := a.openSource(); err != nil {
		return err
	}

	fetcher, err := source.NewRecordSource(a.cfg.Procedure, a.source, logger)
	if err != nil {
		return err
	}
	marker, err := source.NewAcknowledger(a.cfg.Procedure, a.source, logger)
	if err != nil {
		return err
	}

	a.engine = orchestrator.New(fetcher, client, marker, logger)

	if a.cfg.History.Enabled {
		a.startHistory(ctx)
	}
	return nil
}

// startHistory wires the run history syncer. Failures only disable history.
func (a *app) startHistory(ctx context.Context) {
	history, err := db.OpenWithConfig(a.cfg.History.DB())
	if err != nil {
		a.logger.Warn("run history disabled, cannot open store", "dsn", a.cfg.History.DSN, "error", err)
		return
	}

	if err := history.EnsureHistorySchema(ctx); err != nil {
		a.logger.Warn("run history disabled, cannot create schema", "error", err)
		history.Close()
		return
	}

	s, err := syncer.New(a.cfg.Syncer, history, a.logger.Logger)
	if err != nil {
		a.logger.Warn("run history disabled", "error", err)
		history.Close()
		return
	}

	a.history = history
	a.syncer = s
	a.engine.OnResult(s.Record)
	s.Start()
}

// Close flushes history and releases every connection
func (a *app) Close() {
	if a.syncer != nil {
		_ = a.syncer.Shutdown()
	}
	if a.history != nil {
		a.history.Close()
	}
	if a.source != nil {
		a.source.Close()
	}
	_ = a.logger.Close()
}
