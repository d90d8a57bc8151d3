// Package syncer buffers finished sync runs and writes them to the history
// store off the run path. History failures are logged and never reach the
// run that produced the record.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/livinlefevreloca/biosync/internal/db"
	"github.com/livinlefevreloca/biosync/internal/orchestrator"
)

var errClosed = errors.New("syncer is shut down")

// Syncer handles all history write operations and buffering
type Syncer struct {
	// Configuration
	config Config
	logger *slog.Logger
	writer HistoryWriter

	// Run record buffering
	mu        sync.Mutex
	buffer    []db.SyncRun
	channel   chan []db.SyncRun
	lastFlush time.Time
	closed    bool

	written atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64

	// Control
	started  atomic.Bool
	shutdown chan struct{}
	wg       sync.WaitGroup // Tracks background goroutines
}

// New creates a syncer writing to writer
func New(config Config, writer HistoryWriter, logger *slog.Logger) (*Syncer, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return &Syncer{
		config:    config,
		logger:    logger,
		writer:    writer,
		buffer:    make([]db.SyncRun, 0, config.FlushThreshold),
		channel:   make(chan []db.SyncRun, config.ChannelSize),
		lastFlush: time.Now(),
		shutdown:  make(chan struct{}),
	}, nil
}

// Record buffers a finished run. It has the orchestrator.Observer signature
// and never blocks on the database.
func (s *Syncer) Record(report orchestrator.Report) {
	run := db.SyncRun{
		RunID:       report.RunID,
		Trigger:     string(report.Trigger),
		StartedAt:   report.StartedAt,
		CompletedAt: report.CompletedAt,
		Success:     report.Result.Success,
		Message:     report.Result.Message,
		Records:     report.Records,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.dropped.Add(1)
		s.logger.Warn("run record dropped after syncer shutdown", "run_id", run.RunID)
		return
	}

	s.buffer = append(s.buffer, run)

	if over := len(s.buffer) - s.config.MaxBufferedRuns; over > 0 {
		s.buffer = s.buffer[over:]
		s.dropped.Add(int64(over))
		s.logger.Warn("run history buffer full, dropped oldest records",
			"dropped", over,
			"max", s.config.MaxBufferedRuns)
	}

	if len(s.buffer) >= s.config.FlushThreshold {
		if err := s.flushLocked(); err != nil {
			s.logger.Warn("run history flush deferred", "error", err)
		}
	}
}

// Flush sends all buffered records to the writer goroutine. It returns an
// error if the channel is full; the records stay buffered.
func (s *Syncer) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.flushLocked()
}

// flushLocked must be called with mu held
func (s *Syncer) flushLocked() error {
	if s.closed {
		return errClosed
	}
	if len(s.buffer) == 0 {
		return nil
	}

	select {
	case s.channel <- s.buffer:
	default:
		return fmt.Errorf("history channel full, %d runs buffered", len(s.buffer))
	}

	s.buffer = make([]db.SyncRun, 0, s.config.FlushThreshold)
	s.lastFlush = time.Now()
	return nil
}

// GetStats returns current syncer statistics
func (s *Syncer) GetStats() Stats {
	s.mu.Lock()
	buffered := len(s.buffer)
	s.mu.Unlock()

	return Stats{
		BufferedRuns: buffered,
		WrittenRuns:  s.written.Load(),
		FailedRuns:   s.failed.Load(),
		DroppedRuns:  s.dropped.Load(),
	}
}

// GetLastFlushTime returns the timestamp of the last successful flush
func (s *Syncer) GetLastFlushTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFlush
}

// Start launches the writer and the interval flusher
func (s *Syncer) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(2)

	go s.runWriter()
	go s.runFlusher()
}

// runFlusher flushes on the time threshold
func (s *Syncer) runFlusher() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			if err := s.Flush(); err != nil && !errors.Is(err, errClosed) {
				s.logger.Warn("run history flush deferred", "error", err)
			}
		}
	}
}

// runWriter writes batches to the history store
func (s *Syncer) runWriter() {
	defer s.wg.Done()

	for batch := range s.channel {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
		err := s.writer.WriteSyncRuns(ctx, batch)
		cancel()

		if err != nil {
			s.failed.Add(int64(len(batch)))
			s.logger.Error("failed to write run history",
				"runs", len(batch),
				"first_run_id", batch[0].RunID,
				"error", err)
			continue
		}

		s.written.Add(int64(len(batch)))
		s.logger.Debug("wrote run history", "runs", len(batch))
	}

	s.logger.Debug("run history writer shut down")
}

// Shutdown performs graceful shutdown ensuring buffered records are written.
// Records arriving afterwards are dropped.
func (s *Syncer) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errClosed
	}
	// Once closed is set neither Record nor the flusher sends on the channel
	s.closed = true
	remaining := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	s.logger.Info("starting syncer shutdown", "buffered", len(remaining))
	close(s.shutdown)

	if !s.started.Load() {
		close(s.channel)
		s.dropped.Add(int64(len(remaining) + s.pending()))
		s.logger.Warn("syncer was never started, buffered records dropped")
		return nil
	}

	// The writer is still draining, so a blocking send completes
	if len(remaining) > 0 {
		s.channel <- remaining
	}
	close(s.channel)
	s.wg.Wait()

	s.logger.Info("syncer shutdown complete",
		"written", s.written.Load(),
		"failed", s.failed.Load())
	return nil
}

// pending counts records sitting in the closed channel
func (s *Syncer) pending() int {
	n := 0
	for batch := range s.channel {
		n += len(batch)
	}
	return n
}
