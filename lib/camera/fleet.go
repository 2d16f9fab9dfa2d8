package camera

import (
	"context"
	"log/slog"
	"time"

	"github.com/after5cst/gracecam/lib/clock"
	"github.com/after5cst/gracecam/lib/metrics"
	"github.com/after5cst/gracecam/lib/position"
)

// Fleet owns the cameras and every change to their tracked status.
type Fleet struct {
	cams      []*Camera
	driver    Driver
	clock     clock.Clock
	moveDelay time.Duration
	logger    *slog.Logger
}

func NewFleet(cams []*Camera, driver Driver, clk clock.Clock, moveDelay time.Duration, logger *slog.Logger) *Fleet {
	return &Fleet{
		cams:      cams,
		driver:    driver,
		clock:     clk,
		moveDelay: moveDelay,
		logger:    logger.With("component", "fleet"),
	}
}

// All returns the cameras in registration order.
func (f *Fleet) All() []*Camera {
	return f.cams
}

func (f *Fleet) ByID(id int) (*Camera, bool) {
	for _, c := range f.cams {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

func (f *Fleet) ByName(name string) (*Camera, bool) {
	for _, c := range f.cams {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

func (f *Fleet) MoveDelay() time.Duration {
	return f.moveDelay
}

// Move recalls preset on cam. The status goes to Moving before the command is
// sent and to Known(preset) once moveDelay has elapsed; a newer Move or an
// Invalidate cancels that completion. A transport error leaves the camera
// Unknown and is returned, but onComplete still fires after the delay with
// ok=false. A camera already Known at preset completes immediately without a
// command.
func (f *Fleet) Move(ctx context.Context, cam *Camera, preset position.Position, onComplete func(cam *Camera, ok bool)) error {
	cam.mu.Lock()
	if cam.status == Known(preset) {
		cam.mu.Unlock()
		if onComplete != nil {
			onComplete(cam, true)
		}
		return nil
	}
	from := cam.status
	token := cam.supersede()
	cam.status = Moving(preset)
	cam.mu.Unlock()

	logger := f.logger.With("camera", cam.Name)
	logger.Info("moving camera", "from", from.String(), "to", preset.String())

	err := f.driver.Recall(ctx, cam, preset)
	ok := err == nil
	if ok {
		metrics.CameraMovesTotal.WithLabelValues(cam.Name, "ok").Inc()
	} else {
		metrics.CameraMovesTotal.WithLabelValues(cam.Name, "error").Inc()
		logger.Error("preset recall failed", "preset", preset.String(), "error", err)
		cam.mu.Lock()
		if cam.gen == token {
			cam.status = UnknownStatus
		}
		cam.mu.Unlock()
	}

	t := f.clock.AfterFunc(f.moveDelay, func() {
		cam.mu.Lock()
		if cam.gen != token {
			cam.mu.Unlock()
			return
		}
		cam.pending = nil
		if ok {
			cam.status = Known(preset)
		}
		cam.mu.Unlock()
		if ok {
			logger.Debug("camera at preset", "preset", preset.String())
		}
		if onComplete != nil {
			onComplete(cam, ok)
		}
	})

	cam.mu.Lock()
	if cam.gen == token {
		cam.pending = t
	} else {
		t.Stop()
	}
	cam.mu.Unlock()

	return err
}

func (f *Fleet) Invalidate(cam *Camera) {
	cam.mu.Lock()
	defer cam.mu.Unlock()
	cam.supersede()
	cam.status = UnknownStatus
}

func (f *Fleet) InvalidateAll() {
	for _, c := range f.cams {
		f.Invalidate(c)
	}
}
