package handlers

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/after5cst/gracecam/lib/event"
	"github.com/after5cst/gracecam/lib/metrics"
	"github.com/after5cst/gracecam/lib/position"
)

type recorder struct {
	mu        sync.Mutex
	reports   []event.Report
	drifts    int
	highlight []position.Position
	err       error
}

func (r *recorder) RecordReport(rep event.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

func (r *recorder) RecordDrift() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drifts++
}

func (r *recorder) Record(rep event.Report) error {
	r.RecordReport(rep)
	return r.err
}

func (r *recorder) Highlight(p position.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highlight = append(r.highlight, p)
}

func setupTest(t *testing.T, sinks Sinks) *event.Bus {
	t.Helper()
	bus := event.NewBus()
	RegisterEventHandlers(bus, sinks, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return bus
}

func activated(action event.Action, target position.Position) event.Event {
	return event.Event{
		Type:    event.Activated,
		TraceID: "t1",
		Report:  &event.Report{TraceID: "t1", Action: action, Target: target},
	}
}

func TestReportsReachEverySink(t *testing.T) {
	board, journal, deck := &recorder{}, &recorder{}, &recorder{}
	bus := setupTest(t, Sinks{Board: board, Journal: journal, Deck: deck})

	before := testutil.ToFloat64(metrics.ActivationsTotal.WithLabelValues(string(event.ActionPromote)))

	bus.Publish(activated(event.ActionPromote, position.Piano))
	bus.Publish(event.Event{
		Type:   event.Rebalanced,
		Report: &event.Report{Action: event.ActionRebalance, Target: position.Unknown},
	})
	bus.Wait()

	if len(board.reports) != 2 {
		t.Errorf("board got %d reports, want 2", len(board.reports))
	}
	if len(journal.reports) != 2 {
		t.Errorf("journal got %d reports, want 2", len(journal.reports))
	}
	if len(deck.highlight) != 1 || deck.highlight[0] != position.Piano {
		t.Errorf("deck highlights %v, want [PIANO]", deck.highlight)
	}
	if got := testutil.ToFloat64(metrics.ActivationsTotal.WithLabelValues(string(event.ActionPromote))); got != before+1 {
		t.Errorf("promote counter %v, want %v", got, before+1)
	}
}

func TestDriftCounted(t *testing.T) {
	board := &recorder{}
	bus := setupTest(t, Sinks{Board: board})

	before := testutil.ToFloat64(metrics.DriftTotal)
	bus.Publish(event.Event{Type: event.DriftDetected, PreviousProgram: 1, Program: 3})
	bus.Wait()

	if board.drifts != 1 {
		t.Errorf("board drifts %d, want 1", board.drifts)
	}
	if got := testutil.ToFloat64(metrics.DriftTotal); got != before+1 {
		t.Errorf("drift counter %v, want %v", got, before+1)
	}
}

func TestNilSinksSkipped(t *testing.T) {
	bus := setupTest(t, Sinks{})
	bus.Publish(activated(event.ActionNoOp, position.Wide))
	bus.Publish(event.Event{Type: event.DriftDetected})
	bus.Publish(event.Event{Type: event.TriggerDropped, Reason: "switcher: /me/0/program: timeout"})
	bus.Wait()
}

func TestJournalErrorDoesNotStopOthers(t *testing.T) {
	board := &recorder{}
	journal := &recorder{err: errors.New("disk full")}
	bus := setupTest(t, Sinks{Board: board, Journal: journal})

	bus.Publish(activated(event.ActionRepurpose, position.Organ))
	bus.Wait()

	if len(board.reports) != 1 || len(journal.reports) != 1 {
		t.Errorf("board %d, journal %d; want 1 each", len(board.reports), len(journal.reports))
	}
}
