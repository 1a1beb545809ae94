// Package collect drives a collection run end to end: free-form unit
// input in, an ordered stream of per-unit results out. The backend does
// the actual scraping; this package owns validation, dispatch, paced
// delivery, progress accounting, and the run's error taxonomy.
package collect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"autolav/internal/backend"
)

// State is the orchestrator's position in the run lifecycle.
type State string

const (
	StateIdle            State = "idle"
	StateValidating      State = "validating"
	StateAwaitingBackend State = "awaiting_backend"
	StateStreaming       State = "streaming"
)

// DateRange bounds one run. Both dates are required, but their order
// and format are left to the backend: the original tool dispatched
// whatever the operator typed, and the backend normalizes or rejects.
type DateRange struct {
	Start string
	End   string
}

// ErrRunInProgress is returned by Start while a run is live. One run
// at a time; the new request is rejected, never merged.
var ErrRunInProgress = errors.New("a collection run is already in progress")

// ValidationError is a pre-dispatch rejection. No network call was
// made and the runner stays Idle.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// EventType discriminates run events.
type EventType string

const (
	// EventDelivery carries one UnitResult plus the progress pair.
	EventDelivery EventType = "delivery"
	// EventDone ends a run that reached Streaming; Cancelled marks a
	// run stopped by Cancel with its delivered results retained.
	EventDone EventType = "done"
	// EventFailed ends a run aborted by a transport failure. No
	// results from the attempt are retained.
	EventFailed EventType = "failed"
)

// Event is one element of the run's delivery stream.
type Event struct {
	Type      EventType
	RunID     uuid.UUID
	Result    backend.UnitResult // set on EventDelivery
	Current   int                // 1..Total on deliveries; delivered count on Done
	Total     int
	Cancelled bool  // set on EventDone
	Err       error // set on EventFailed; message is the backend's, verbatim
}

// Collector is the slice of the backend client the runner needs.
type Collector interface {
	Collect(ctx context.Context, req backend.CollectRequest) (*backend.CollectResponse, error)
}

// CredentialGate reports whether privileged operations may proceed.
// *auth.Gate satisfies it.
type CredentialGate interface {
	Require() bool
}

// Snapshot is a stable copy of run state for readers. The exporter and
// aggregator consume snapshots; they never see the live slice.
type Snapshot struct {
	RunID   uuid.UUID
	State   State
	Results []backend.UnitResult
	Range   DateRange
	Current int
	Total   int
}

// Runner is the collection orchestrator. It issues exactly one batched
// backend call per run, then releases the already-complete results one
// at a time so a progress observer sees N distinct updates for N units.
type Runner struct {
	collector Collector
	gate      CredentialGate
	pacing    time.Duration
	logger    *zap.Logger

	mu        sync.Mutex
	state     State
	runID     uuid.UUID
	dateRange DateRange
	delivered []backend.UnitResult
	current   int
	total     int
	cancel    context.CancelFunc
}

// NewRunner creates an idle runner. pacing is the delay between
// deliveries; zero delivers instantly but still item by item.
func NewRunner(collector Collector, gate CredentialGate, pacing time.Duration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		collector: collector,
		gate:      gate,
		pacing:    pacing,
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the runner's current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Snapshot returns a consistent copy of the delivered results and
// progress. Safe to call at any time, including mid-stream.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	results := make([]backend.UnitResult, len(r.delivered))
	copy(results, r.delivered)
	return Snapshot{
		RunID:   r.runID,
		State:   r.state,
		Results: results,
		Range:   r.dateRange,
		Current: r.current,
		Total:   r.total,
	}
}

// Start validates, dispatches, and streams one collection run. It
// returns the run's event channel, or a *ValidationError /
// ErrRunInProgress without touching the network. The channel is
// buffered for the whole run, so a slow consumer never blocks delivery
// or cancellation, and is closed after the terminal event.
func (r *Runner) Start(ctx context.Context, rawUnits string, dateRange DateRange) (<-chan Event, error) {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.state = StateValidating
	r.mu.Unlock()

	units, err := r.validate(rawUnits, dateRange)
	if err != nil {
		r.mu.Lock()
		r.state = StateIdle
		r.mu.Unlock()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.state = StateAwaitingBackend
	r.runID = uuid.New()
	r.dateRange = dateRange
	r.delivered = r.delivered[:0]
	r.current = 0
	r.total = 0
	r.cancel = cancel
	runID := r.runID
	r.mu.Unlock()

	r.logger.Info("collection run started",
		zap.String("run_id", runID.String()),
		zap.Int("units", len(units)),
		zap.String("start_date", dateRange.Start),
		zap.String("end_date", dateRange.End))

	events := make(chan Event, len(units)+1)
	go r.run(runCtx, cancel, runID, units, dateRange, events)
	return events, nil
}

// Cancel stops an in-progress run. Already-delivered results are
// retained; the only cancellable work is the pacing loop, since the
// single batched response has fully arrived before streaming starts.
func (r *Runner) Cancel() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Runner) validate(rawUnits string, dateRange DateRange) ([]string, error) {
	units := ParseUnits(rawUnits)
	if len(units) == 0 {
		return nil, &ValidationError{Field: "units", Reason: "no unit identifiers given"}
	}
	if dateRange.Start == "" {
		return nil, &ValidationError{Field: "start_date", Reason: "start date is required"}
	}
	if dateRange.End == "" {
		return nil, &ValidationError{Field: "end_date", Reason: "end date is required"}
	}
	if !r.gate.Require() {
		return nil, &ValidationError{Field: "credentials", Reason: "no valid credentials; log in first"}
	}
	return units, nil
}

func (r *Runner) run(ctx context.Context, cancel context.CancelFunc, runID uuid.UUID, units []string, dateRange DateRange, events chan<- Event) {
	defer close(events)
	defer cancel()

	resp, err := r.collector.Collect(ctx, backend.CollectRequest{
		Units:     units,
		StartDate: dateRange.Start,
		EndDate:   dateRange.End,
	})
	if err != nil {
		// Transport failure aborts the whole run: nothing from this
		// attempt is retained.
		r.logger.Warn("collection run failed",
			zap.String("run_id", runID.String()),
			zap.Error(err))
		r.mu.Lock()
		r.state = StateIdle
		r.cancel = nil
		r.mu.Unlock()
		events <- Event{Type: EventFailed, RunID: runID, Err: err}
		return
	}

	total := len(resp.Results)
	r.mu.Lock()
	r.state = StateStreaming
	r.total = total
	r.mu.Unlock()

	cancelled := false
	for i, result := range resp.Results {
		if i > 0 && r.pacing > 0 {
			timer := time.NewTimer(r.pacing)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		r.mu.Lock()
		r.delivered = append(r.delivered, result)
		r.current = i + 1
		current := r.current
		r.mu.Unlock()

		events <- Event{
			Type:    EventDelivery,
			RunID:   runID,
			Result:  result,
			Current: current,
			Total:   total,
		}
	}

	r.mu.Lock()
	r.state = StateIdle
	r.cancel = nil
	delivered := r.current
	r.mu.Unlock()

	r.logger.Info("collection run finished",
		zap.String("run_id", runID.String()),
		zap.Int("delivered", delivered),
		zap.Int("total", total),
		zap.Bool("cancelled", cancelled))
	events <- Event{Type: EventDone, RunID: runID, Current: delivered, Total: total, Cancelled: cancelled}
}
