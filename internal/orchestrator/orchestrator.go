// Package orchestrator runs the fetch, transmit and acknowledge pipeline as
// a single gated run that always ends in exactly one Result.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/livinlefevreloca/biosync/internal/apperr"
	"github.com/livinlefevreloca/biosync/internal/metrics"
	"github.com/livinlefevreloca/biosync/internal/source"
	"github.com/livinlefevreloca/biosync/internal/transmitter"
)

// Orchestrator sequences one sync run. At most one run executes at a time
// across every caller sharing the instance.
type Orchestrator struct {
	fetcher Fetcher
	sender  Sender
	marker  Marker
	logger  *slog.Logger

	// Single-slot gate held for the whole run
	gate     *semaphore.Weighted
	inFlight atomic.Bool

	observers []Observer

	// Optional state recorder for testing
	recorder *StateRecorder
}

// run is the per-invocation state carried through the state machine
type run struct {
	id        string
	trigger   Trigger
	state     State
	startedAt time.Time

	batch   source.Batch
	outcome transmitter.Outcome
	result  Result
	records int
}

// New creates an orchestrator over the three pipeline components
func New(fetcher Fetcher, sender Sender, marker Marker, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher: fetcher,
		sender:  sender,
		marker:  marker,
		logger:  logger,
		gate:    semaphore.NewWeighted(1),
	}
}

// OnResult registers an observer. Register observers before the first run.
func (o *Orchestrator) OnResult(fn Observer) {
	o.observers = append(o.observers, fn)
}

// Running reports whether a run currently holds the gate
func (o *Orchestrator) Running() bool {
	return o.inFlight.Load()
}

// TryRunOnce executes a run if none is in flight. Otherwise it returns
// immediately with apperr.ErrRunInProgress and an "already running" result,
// which keeps interactive callers responsive.
func (o *Orchestrator) TryRunOnce(ctx context.Context, trigger Trigger) (Result, error) {
	if !o.gate.TryAcquire(1) {
		metrics.RunsSkipped.WithLabelValues(string(trigger)).Inc()
		o.logger.Warn("sync run already in progress", "trigger", trigger)
		return Result{Success: false, Message: MsgAlreadyRunning}, apperr.ErrRunInProgress
	}
	defer o.gate.Release(1)

	return o.execute(ctx, trigger), nil
}

// RunOnce waits for the gate and executes a run. If ctx ends while waiting
// the run is not started and a failed result is returned.
func (o *Orchestrator) RunOnce(ctx context.Context, trigger Trigger) Result {
	if err := o.gate.Acquire(ctx, 1); err != nil {
		return Result{Success: false, Message: fmt.Sprintf(msgUnexpectedFormat, err)}
	}
	defer o.gate.Release(1)

	return o.execute(ctx, trigger)
}

// execute runs the state machine. The caller holds the gate.
func (o *Orchestrator) execute(ctx context.Context, trigger Trigger) Result {
	o.inFlight.Store(true)
	defer o.inFlight.Store(false)

	r := &run{
		id:        uuid.NewString(),
		trigger:   trigger,
		state:     &FetchState{},
		startedAt: time.Now(),
	}
	if o.recorder != nil {
		o.recorder.Record(r.state)
	}

	o.logger.Info("starting data sync", "run_id", r.id, "trigger", trigger)

	o.step(ctx, r)
	o.report(r)
	return r.result
}

// step drives r until it reaches DoneState. A panic anywhere in the
// pipeline ends the run with an unexpected-error result.
func (o *Orchestrator) step(ctx context.Context, r *run) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("sync run panic recovered", "run_id", r.id, "panic", p)
			o.finish(r, false, fmt.Sprintf(msgUnexpectedFormat, p))
		}
	}()

	for {
		switch r.state.(type) {
		case *FetchState:
			o.runFetch(ctx, r)
		case *TransmitState:
			o.runTransmit(ctx, r)
		case *AcknowledgeState:
			o.runAcknowledge(ctx, r)
		case *DoneState:
			return
		default:
			o.finish(r, false, fmt.Sprintf(msgUnexpectedFormat, "unknown state "+r.state.Name()))
		}
	}
}

func (o *Orchestrator) runFetch(ctx context.Context, r *run) {
	o.logger.Info("fetching data from database", "run_id", r.id)

	batch, err := o.fetcher.FetchBatch(ctx)
	if err != nil {
		o.logger.Error("fetch failed", "run_id", r.id, "kind", apperr.Kind(err), "error", err)
		o.finish(r, false, fmt.Sprintf(msgUnexpectedFormat, err))
		return
	}

	if batch == "" {
		o.finish(r, true, MsgNoRecords)
		return
	}

	r.batch = batch
	o.transitionTo(r, &TransmitState{})
}

func (o *Orchestrator) runTransmit(ctx context.Context, r *run) {
	o.logger.Info("syncing data with API", "run_id", r.id)

	r.outcome = o.sender.Send(ctx, string(r.batch))
	r.batch = ""

	if !r.outcome.Success {
		o.finish(r, false, fmt.Sprintf(msgAPIFailedFormat, r.outcome.Message))
		return
	}

	if len(r.outcome.TxnIDs) == 0 {
		o.finish(r, true, MsgNoTransactionIDs)
		return
	}

	o.transitionTo(r, &AcknowledgeState{})
}

func (o *Orchestrator) runAcknowledge(ctx context.Context, r *run) {
	ids := r.outcome.TxnIDs
	o.logger.Info("records synced, updating status", "run_id", r.id, "txn_ids", ids)

	ok, err := o.marker.MarkSynced(ctx, ids)
	if err != nil || !ok {
		// The remote side holds the data but the local store does not know it.
		// Not retried: a blind retry would resubmit accepted records.
		o.logger.Error("acknowledgment failed",
			"run_id", r.id,
			"kind", apperr.Kind(apperr.ErrAcknowledgment),
			"txn_ids", ids,
			"error", err)
		o.finish(r, false, MsgAcknowledgeFailed)
		return
	}

	r.records = len(ids)
	metrics.RecordsSynced.Add(float64(r.records))
	o.finish(r, true, fmt.Sprintf(msgSyncedFormat, r.records))
}

// finish sets the terminal result. Only the first call has any effect.
func (o *Orchestrator) finish(r *run, success bool, message string) {
	if _, done := r.state.(*DoneState); done {
		return
	}
	r.result = Result{Success: success, Message: message}
	o.transitionTo(r, &DoneState{})
}

// transitionTo performs a state transition and logs it
func (o *Orchestrator) transitionTo(r *run, newState State) {
	oldStateName := r.state.Name()
	r.state = newState

	// Record state for testing if recorder is present
	if o.recorder != nil {
		o.recorder.Record(newState)
	}

	o.logger.Debug("state transition",
		"from", oldStateName,
		"to", newState.Name(),
		"run_id", r.id)
}

// report logs the terminal result and notifies observers
func (o *Orchestrator) report(r *run) {
	completedAt := time.Now()
	duration := completedAt.Sub(r.startedAt)

	attrs := []any{
		"run_id", r.id,
		"trigger", r.trigger,
		"success", r.result.Success,
		"duration", duration,
	}
	if r.result.Success {
		o.logger.Info(r.result.Message, attrs...)
	} else {
		o.logger.Error(r.result.Message, attrs...)
	}

	metrics.RecordRun(string(r.trigger), r.result.Success, duration)

	rep := Report{
		RunID:       r.id,
		Trigger:     r.trigger,
		StartedAt:   r.startedAt,
		CompletedAt: completedAt,
		Result:      r.result,
		Records:     r.records,
	}
	for _, fn := range o.observers {
		o.notify(fn, rep)
	}
}

// notify calls one observer. A panicking observer is logged and does not
// reach the caller of RunOnce or the remaining observers.
func (o *Orchestrator) notify(fn Observer, rep Report) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("result observer panic recovered", "run_id", rep.RunID, "panic", fmt.Sprint(p))
		}
	}()
	fn(rep)
}
