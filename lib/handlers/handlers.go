package handlers

import (
	"log/slog"

	"github.com/after5cst/gracecam/lib/event"
	"github.com/after5cst/gracecam/lib/metrics"
	"github.com/after5cst/gracecam/lib/position"
)

// Board receives reports for the live status page.
type Board interface {
	RecordReport(r event.Report)
	RecordDrift()
}

type Recorder interface {
	Record(r event.Report) error
}

// Highlighter shows the shot on program on a control surface.
type Highlighter interface {
	Highlight(p position.Position)
}

// Sinks are the optional consumers of orchestrator events. Nil fields are
// skipped.
type Sinks struct {
	Board   Board
	Journal Recorder
	Deck    Highlighter
}

// RegisterEventHandlers subscribes metrics, logging and every non-nil sink
// to bus.
func RegisterEventHandlers(bus *event.Bus, sinks Sinks, logger *slog.Logger) {
	logger = logger.With("component", "handlers")

	// metrics
	report := func(e event.Event) {
		if e.Report == nil {
			return
		}
		metrics.ActivationsTotal.WithLabelValues(string(e.Report.Action)).Inc()
		metrics.ActivationDuration.Observe(e.Report.Duration.Seconds())
	}
	bus.Subscribe(event.Activated, report)
	bus.Subscribe(event.Rebalanced, report)
	bus.Subscribe(event.DriftDetected, func(e event.Event) {
		metrics.DriftTotal.Inc()
	})

	if sinks.Board != nil {
		board := func(e event.Event) {
			if e.Report != nil {
				sinks.Board.RecordReport(*e.Report)
			}
		}
		bus.Subscribe(event.Activated, board)
		bus.Subscribe(event.Rebalanced, board)
		bus.Subscribe(event.DriftDetected, func(e event.Event) {
			sinks.Board.RecordDrift()
		})
	}

	if sinks.Journal != nil {
		record := func(e event.Event) {
			if e.Report == nil {
				return
			}
			if err := sinks.Journal.Record(*e.Report); err != nil {
				logger.Error("journal write failed", "trace_id", e.TraceID, "error", err)
			}
		}
		bus.Subscribe(event.Activated, record)
		bus.Subscribe(event.Rebalanced, record)
	}

	if sinks.Deck != nil {
		bus.Subscribe(event.Activated, func(e event.Event) {
			if e.Report != nil {
				sinks.Deck.Highlight(e.Report.Target)
			}
		})
	}

	bus.Subscribe(event.TriggerDropped, func(e event.Event) {
		logger.Warn("trigger dropped", "trace_id", e.TraceID, "reason", e.Reason)
	})
}
