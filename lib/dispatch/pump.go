package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/after5cst/gracecam/lib/metrics"
	"github.com/after5cst/gracecam/lib/trigger"
)

type NoteSource interface {
	Get(timeout time.Duration) (trigger.Note, bool)
}

// Pump reads notes until ctx is done, queueing note-ons and dropping the
// note-offs that close them.
func Pump(ctx context.Context, src NoteSource, q *Queue, timeout time.Duration, logger *slog.Logger) {
	logger = logger.With("component", "pump")
	var d trigger.Debouncer
	for ctx.Err() == nil {
		n, ok := src.Get(timeout)
		if !ok {
			continue
		}
		switch d.Feed(n) {
		case trigger.Enqueue:
			t := q.PushNote(n)
			logger.Info("note queued", "trace_id", t.ID, "note", n.String())
		case trigger.Swallow:
			logger.Debug("note released", "note", n.String())
		case trigger.LogOnly:
			logger.Info("unpaired note-off", "note", n.String())
			metrics.TriggersTotal.WithLabelValues(string(SourceMIDI), "ignored").Inc()
		}
	}
}
