package collect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/goleak"

	"autolav/internal/backend"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCollector struct {
	resp  *backend.CollectResponse
	err   error
	gotCh chan backend.CollectRequest
	block chan struct{} // when non-nil, Collect waits for close or ctx
}

func (f *fakeCollector) Collect(ctx context.Context, req backend.CollectRequest) (*backend.CollectResponse, error) {
	if f.gotCh != nil {
		f.gotCh <- req
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, &backend.TransportError{Body: ctx.Err().Error()}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type openGate bool

func (g openGate) Require() bool { return bool(g) }

func results(ids ...string) []backend.UnitResult {
	out := make([]backend.UnitResult, len(ids))
	for i, id := range ids {
		out[i] = backend.UnitResult{UnitID: id, Total: decimal.NewFromInt(int64(i + 1))}
	}
	return out
}

func drain(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var evs []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return evs
			}
			evs = append(evs, ev)
		case <-timeout:
			t.Fatal("timed out waiting for events")
		}
	}
}

func TestRunner_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		dr    DateRange
		gate  openGate
		field string
	}{
		{"empty units", " ; , ", DateRange{Start: "2025-01-01", End: "2025-01-07"}, true, "units"},
		{"missing start", "101", DateRange{End: "2025-01-07"}, true, "start_date"},
		{"missing end", "101", DateRange{Start: "2025-01-01"}, true, "end_date"},
		{"no credentials", "101", DateRange{Start: "2025-01-01", End: "2025-01-07"}, false, "credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCollector{gotCh: make(chan backend.CollectRequest, 1)}
			r := NewRunner(fc, tt.gate, 0, nil)

			_, err := r.Start(context.Background(), tt.raw, tt.dr)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Field)
			}
			if len(fc.gotCh) != 0 {
				t.Error("validation failure must not reach the backend")
			}
			if r.State() != StateIdle {
				t.Errorf("expected StateIdle, got %s", r.State())
			}
		})
	}
}

func TestRunner_StreamsEveryResultWithProgress(t *testing.T) {
	fc := &fakeCollector{
		resp:  &backend.CollectResponse{Results: results("101", "102", "103")},
		gotCh: make(chan backend.CollectRequest, 1),
	}
	r := NewRunner(fc, openGate(true), 0, nil)

	ch, err := r.Start(context.Background(), "101, 102;\n103 ,", DateRange{Start: "2025-01-01", End: "2025-01-07"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	req := <-fc.gotCh
	if len(req.Units) != 3 || req.Units[0] != "101" || req.Units[2] != "103" {
		t.Errorf("unexpected dispatched units: %v", req.Units)
	}

	evs := drain(t, ch)
	if len(evs) != 4 {
		t.Fatalf("expected 3 deliveries + done, got %d events", len(evs))
	}
	for i := 0; i < 3; i++ {
		ev := evs[i]
		if ev.Type != EventDelivery {
			t.Fatalf("event %d: expected delivery, got %s", i, ev.Type)
		}
		if ev.Current != i+1 || ev.Total != 3 {
			t.Errorf("event %d: progress (%d,%d), want (%d,3)", i, ev.Current, ev.Total, i+1)
		}
	}
	done := evs[3]
	if done.Type != EventDone || done.Cancelled {
		t.Errorf("unexpected terminal event: %+v", done)
	}

	snap := r.Snapshot()
	if len(snap.Results) != 3 || snap.Current != 3 || snap.Total != 3 {
		t.Errorf("unexpected snapshot: %d results, progress (%d,%d)", len(snap.Results), snap.Current, snap.Total)
	}
	if r.State() != StateIdle {
		t.Errorf("expected StateIdle after run, got %s", r.State())
	}
}

func TestRunner_UnitErrorDoesNotAbortRun(t *testing.T) {
	fc := &fakeCollector{resp: &backend.CollectResponse{Results: []backend.UnitResult{
		{UnitID: "A", Total: decimal.RequireFromString("12.5")},
		{UnitID: "B", Error: "timeout"},
	}}}
	r := NewRunner(fc, openGate(true), 0, nil)

	ch, err := r.Start(context.Background(), "A,B", DateRange{Start: "2025-01-01", End: "2025-01-02"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	evs := drain(t, ch)
	if len(evs) != 3 {
		t.Fatalf("expected 2 deliveries + done, got %d", len(evs))
	}

	s := Summarize(r.Snapshot().Results)
	if s.Succeeded != 1 || s.Failed != 1 {
		t.Errorf("got %d/%d success/failure, want 1/1", s.Succeeded, s.Failed)
	}
	if !s.GrandTotal.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("got grand total %s, want 12.5", s.GrandTotal)
	}
}

func TestRunner_TransportErrorAbortsRun(t *testing.T) {
	fc := &fakeCollector{err: &backend.TransportError{StatusCode: 500, Body: "portal indisponível"}}
	r := NewRunner(fc, openGate(true), 0, nil)

	ch, err := r.Start(context.Background(), "101,102", DateRange{Start: "2025-01-01", End: "2025-01-02"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	evs := drain(t, ch)
	if len(evs) != 1 || evs[0].Type != EventFailed {
		t.Fatalf("expected single failed event, got %+v", evs)
	}

	var terr *backend.TransportError
	if !errors.As(evs[0].Err, &terr) {
		t.Fatalf("expected TransportError, got %v", evs[0].Err)
	}
	if terr.Body != "portal indisponível" {
		t.Errorf("error body not surfaced verbatim: %q", terr.Body)
	}

	snap := r.Snapshot()
	if len(snap.Results) != 0 {
		t.Errorf("transport failure must retain no partial results, got %d", len(snap.Results))
	}
	if r.State() != StateIdle {
		t.Errorf("expected StateIdle after failure, got %s", r.State())
	}
}

func TestRunner_RejectsConcurrentStart(t *testing.T) {
	block := make(chan struct{})
	fc := &fakeCollector{resp: &backend.CollectResponse{Results: results("101")}, block: block}
	r := NewRunner(fc, openGate(true), 0, nil)

	ch, err := r.Start(context.Background(), "101", DateRange{Start: "2025-01-01", End: "2025-01-02"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err = r.Start(context.Background(), "102", DateRange{Start: "2025-01-01", End: "2025-01-02"})
	if !errors.Is(err, ErrRunInProgress) {
		t.Errorf("expected ErrRunInProgress, got %v", err)
	}

	close(block)
	drain(t, ch)

	// Idle again: a fresh run is accepted.
	ch, err = r.Start(context.Background(), "103", DateRange{Start: "2025-01-01", End: "2025-01-02"})
	if err != nil {
		t.Fatalf("Start after completion: %v", err)
	}
	drain(t, ch)
}

func TestRunner_CancelKeepsDeliveredResults(t *testing.T) {
	fc := &fakeCollector{resp: &backend.CollectResponse{Results: results("101", "102", "103", "104")}}
	r := NewRunner(fc, openGate(true), 50*time.Millisecond, nil)

	ch, err := r.Start(context.Background(), "101,102,103,104", DateRange{Start: "2025-01-01", End: "2025-01-02"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Take the first delivery, then cancel mid-stream.
	first := <-ch
	if first.Type != EventDelivery || first.Current != 1 {
		t.Fatalf("unexpected first event: %+v", first)
	}
	r.Cancel()

	evs := drain(t, ch)
	last := evs[len(evs)-1]
	if last.Type != EventDone || !last.Cancelled {
		t.Fatalf("expected cancelled done event, got %+v", last)
	}

	snap := r.Snapshot()
	if len(snap.Results) == 0 || len(snap.Results) >= 4 {
		t.Errorf("expected partial retained results, got %d", len(snap.Results))
	}
	if r.State() != StateIdle {
		t.Errorf("expected StateIdle after cancel, got %s", r.State())
	}
}

func TestRunner_SnapshotIsStableCopy(t *testing.T) {
	fc := &fakeCollector{resp: &backend.CollectResponse{Results: results("101", "102")}}
	r := NewRunner(fc, openGate(true), 0, nil)

	ch, err := r.Start(context.Background(), "101,102", DateRange{Start: "2025-01-01", End: "2025-01-02"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(t, ch)

	snap := r.Snapshot()
	snap.Results[0].UnitID = "mutated"
	if r.Snapshot().Results[0].UnitID != "101" {
		t.Error("snapshot mutation leaked into runner state")
	}
}
