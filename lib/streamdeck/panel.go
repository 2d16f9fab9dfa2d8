package streamdeck

import (
	"context"
	"image/color"
	"log/slog"
	"sync"

	"github.com/after5cst/gracecam/lib/dispatch"
	"github.com/after5cst/gracecam/lib/position"
)

// Keypad is the part of a Device the panel drives.
type Keypad interface {
	KeyCount() int
	SetKeyText(key int, bg color.Color, fg color.Color, text string) error
	ReadKeys(ch chan<- KeyEvent) error
}

type Enqueuer interface {
	PushPosition(src dispatch.Source, p position.Position) dispatch.Trigger
}

var (
	colorIdle    = color.RGBA{0x20, 0x20, 0x20, 0xff}
	colorPending = color.RGBA{0xc0, 0x80, 0x00, 0xff}
	colorLive    = color.RGBA{0xc0, 0x00, 0x00, 0xff}
)

// Panel lays positions out one per key. A press queues that position; the
// key of the shot on program is lit red.
type Panel struct {
	pad       Keypad
	positions []position.Position
	queue     Enqueuer
	logger    *slog.Logger

	mu      sync.Mutex
	live    position.Position
	pending position.Position
}

func NewPanel(pad Keypad, positions []position.Position, queue Enqueuer, logger *slog.Logger) *Panel {
	if n := pad.KeyCount(); len(positions) > n {
		positions = positions[:n]
	}
	return &Panel{
		pad:       pad,
		positions: positions,
		queue:     queue,
		logger:    logger.With("component", "streamdeck"),
		live:      position.Unknown,
		pending:   position.Unknown,
	}
}

// Run paints the keys and queues presses until ctx is done or the keypad
// stops reporting.
func (p *Panel) Run(ctx context.Context) error {
	p.paintAll()

	events := make(chan KeyEvent, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- p.pad.ReadKeys(events)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case ev := <-events:
			if !ev.Pressed || ev.Key >= len(p.positions) {
				continue
			}
			pos := p.positions[ev.Key]
			t := p.queue.PushPosition(dispatch.SourceDeck, pos)
			p.logger.Info("key pressed", "key", ev.Key, "position", pos.String(), "trigger_id", t.ID)

			p.mu.Lock()
			p.pending = pos
			p.mu.Unlock()
			p.paintAll()
		}
	}
}

// Highlight marks pos as the shot on program and clears any pending key.
func (p *Panel) Highlight(pos position.Position) {
	p.mu.Lock()
	p.live = pos
	p.pending = position.Unknown
	p.mu.Unlock()
	p.paintAll()
}

func (p *Panel) paintAll() {
	p.mu.Lock()
	live, pending := p.live, p.pending
	p.mu.Unlock()

	for key, pos := range p.positions {
		bg := colorIdle
		switch pos {
		case live:
			bg = colorLive
		case pending:
			bg = colorPending
		}
		if err := p.pad.SetKeyText(key, bg, color.White, pos.String()); err != nil {
			p.logger.Warn("paint key", "key", key, "error", err)
		}
	}
}
