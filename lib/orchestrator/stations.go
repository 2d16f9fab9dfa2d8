package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/after5cst/gracecam/lib/camera"
	"github.com/after5cst/gracecam/lib/event"
)

var (
	ErrUnknownSource = errors.New("orchestrator: switcher source has no camera")
	ErrFleetTooSmall = errors.New("orchestrator: need at least three cameras")
	ErrUnknownTarget = errors.New("orchestrator: target position is UNKNOWN")
)

// Stations assigns three distinct cameras to program, preview and standby.
type Stations struct {
	Program *camera.Camera
	Preview *camera.Camera
	Standby *camera.Camera

	// livePreview is the switcher's preview source. It differs from
	// Preview.ID when the switcher had the same source on both buses.
	livePreview int
}

func slot(c *camera.Camera) event.Slot {
	return event.Slot{Camera: c.Name, Source: c.ID, Preset: c.Status().String()}
}

func (s Stations) Snapshot() event.Snapshot {
	return event.Snapshot{
		Program: slot(s.Program),
		Preview: slot(s.Preview),
		Standby: slot(s.Standby),
	}
}

// Reconstruct derives the stations from the switcher's buses and the fleet.
func (o *Orchestrator) Reconstruct(ctx context.Context) (Stations, error) {
	if err := ctx.Err(); err != nil {
		return Stations{}, err
	}
	if len(o.fleet.All()) < 3 {
		return Stations{}, ErrFleetTooSmall
	}

	progID, err := o.sw.Program()
	if err != nil {
		return Stations{}, fmt.Errorf("orchestrator: read program: %w", err)
	}
	prevID, err := o.sw.Preview()
	if err != nil {
		return Stations{}, fmt.Errorf("orchestrator: read preview: %w", err)
	}

	program, ok := o.fleet.ByID(progID)
	if !ok {
		return Stations{}, fmt.Errorf("%w: program %d", ErrUnknownSource, progID)
	}
	preview, ok := o.fleet.ByID(prevID)
	if !ok {
		return Stations{}, fmt.Errorf("%w: preview %d", ErrUnknownSource, prevID)
	}
	if preview == program {
		preview = o.pickPreview(program)
		o.logger.Warn("program and preview share a source", "source", progID, "using_preview", preview.Name)
	}

	var candidates []*camera.Camera
	for _, c := range o.fleet.All() {
		if c != program && c != preview {
			candidates = append(candidates, c)
		}
	}

	return Stations{
		Program:     program,
		Preview:     preview,
		Standby:     o.pickStandby(program, candidates),
		livePreview: prevID,
	}, nil
}

func (o *Orchestrator) pickPreview(program *camera.Camera) *camera.Camera {
	if st, ok := o.cfg.Staging[program.Name]; ok {
		if c, ok := o.fleet.ByName(st.Preview); ok && c != program {
			return c
		}
	}
	for _, c := range o.fleet.All() {
		if c != program {
			return c
		}
	}
	return nil
}

// pickStandby prefers the staging table, then a camera already sitting on a
// standby position, then registration order.
func (o *Orchestrator) pickStandby(program *camera.Camera, candidates []*camera.Camera) *camera.Camera {
	if len(candidates) == 1 {
		return candidates[0]
	}
	if st, ok := o.cfg.Staging[program.Name]; ok {
		for _, c := range candidates {
			if c.Name == st.Standby {
				return c
			}
		}
	}
	for _, c := range candidates {
		if p := c.Position(); p.Valid() && slices.Contains(o.cfg.Standby, p) {
			return c
		}
	}
	return candidates[0]
}
