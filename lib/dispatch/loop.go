package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/after5cst/gracecam/lib/event"
	"github.com/after5cst/gracecam/lib/metrics"
	"github.com/after5cst/gracecam/lib/orchestrator"
	"github.com/after5cst/gracecam/lib/position"
	"github.com/after5cst/gracecam/lib/switcher"
	"github.com/after5cst/gracecam/lib/trace"
	"github.com/after5cst/gracecam/lib/trigger"
)

// Loop is the single control path: everything that touches the switcher or
// moves a camera on purpose runs on its goroutine.
type Loop struct {
	queue  *Queue
	orch   *orchestrator.Orchestrator
	mapper *trigger.Mapper
	poll   time.Duration
	bus    *event.Bus
	logger *slog.Logger
}

func NewLoop(queue *Queue, orch *orchestrator.Orchestrator, mapper *trigger.Mapper, poll time.Duration, bus *event.Bus, logger *slog.Logger) *Loop {
	return &Loop{
		queue:  queue,
		orch:   orch,
		mapper: mapper,
		poll:   poll,
		bus:    bus,
		logger: logger.With("component", "loop"),
	}
}

// Run consumes triggers until ctx is done. Triggers queued before Run are
// processed in arrival order. Drift is checked on every idle poll, on every
// Wake and before each trigger.
func (l *Loop) Run(ctx context.Context) error {
	if n := l.queue.Len(); n > 0 {
		l.logger.Info("processing triggers queued before start", "count", n)
	}
	l.logger.Info("control loop running", "poll", l.poll)
	stop := context.AfterFunc(ctx, l.queue.Wake)
	defer stop()

	for {
		t, ok := l.queue.Pop(l.poll)
		if ctx.Err() != nil {
			return nil
		}
		if _, err := l.orch.CheckDrift(ctx); err != nil {
			l.logger.Error("drift check failed", "error", err)
		}
		if !ok {
			continue
		}
		l.Process(ctx, t)
	}
}

// WatchSwitcher wakes the loop whenever the bridge reports a program change,
// so an operator's cut is seen before the next trigger. It returns when ctx
// is done or updates is closed.
func (l *Loop) WatchSwitcher(ctx context.Context, updates <-chan switcher.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if strings.HasSuffix(u.Address, "/program") {
				l.logger.Debug("switcher program changed", "source", u.Source)
				l.queue.Wake()
			}
		}
	}
}

// Process handles one trigger.
func (l *Loop) Process(ctx context.Context, t Trigger) {
	ctx = trace.ContextWith(ctx, t.ID)
	logger := l.logger.With("trace_id", t.ID, "source", t.Source)

	if t.Note == nil {
		l.activate(ctx, logger, t, t.Position, "ok")
		return
	}

	target, ok := l.mapper.Lookup(*t.Note)
	if ok {
		logger.Info("note mapped", "note", t.Note.String(), "target", target.String())
		l.activate(ctx, logger, t, target, "ok")
		return
	}

	st, err := l.orch.Reconstruct(ctx)
	if err != nil {
		logger.Error("unmapped note, cannot read stations", "note", t.Note.String(), "error", err)
		l.drop(t, err)
		return
	}
	if p := st.Preview.Position(); p.Valid() {
		logger.Info("unmapped note, taking preview", "note", t.Note.String(), "target", p.String())
		l.activate(ctx, logger, t, p, "fallback")
		return
	}

	logger.Info("unmapped note, preview unknown, re-aiming", "note", t.Note.String())
	if _, err := l.orch.Rebalance(ctx); err != nil {
		logger.Error("rebalance failed", "error", err)
		l.drop(t, err)
		return
	}
	metrics.TriggersTotal.WithLabelValues(string(t.Source), "rebalance").Inc()
}

func (l *Loop) activate(ctx context.Context, logger *slog.Logger, t Trigger, target position.Position, result string) {
	report, err := l.orch.Activate(ctx, target)
	if err != nil {
		logger.Error("activate failed", "target", target.String(), "error", err)
		l.drop(t, err)
		return
	}
	if report.Action == event.ActionNoOp {
		result = "noop"
	}
	metrics.TriggersTotal.WithLabelValues(string(t.Source), result).Inc()
	logger.Debug("trigger done", "latency", time.Since(t.Received))
}

func (l *Loop) drop(t Trigger, err error) {
	metrics.TriggersTotal.WithLabelValues(string(t.Source), "error").Inc()
	l.bus.Publish(event.Event{Type: event.TriggerDropped, TraceID: t.ID, Reason: err.Error()})
}
