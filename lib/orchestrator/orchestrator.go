package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/after5cst/gracecam/lib/camera"
	"github.com/after5cst/gracecam/lib/clock"
	"github.com/after5cst/gracecam/lib/event"
	"github.com/after5cst/gracecam/lib/position"
	"github.com/after5cst/gracecam/lib/trace"
)

// Switcher is the part of the switcher client the orchestrator drives.
type Switcher interface {
	Program() (int, error)
	Preview() (int, error)
	SetPreview(source int) error
	Auto() error
}

// Staging names, for a program camera, the cameras that should hold preview
// and standby while it is live.
type Staging struct {
	Preview string
	Standby string
}

type Config struct {
	// Standby is tried in order for the standby camera's position.
	Standby []position.Position
	// Random is drawn from for the preview camera. Repeats bias the draw.
	Random  []position.Position
	Staging map[string]Staging
	// Settle is waited out after every transition.
	Settle time.Duration
}

// Orchestrator decides which camera carries each requested shot. It is not
// safe for concurrent use: one control loop owns it.
type Orchestrator struct {
	fleet  *camera.Fleet
	sw     Switcher
	clock  clock.Clock
	cfg    Config
	bus    *event.Bus
	logger *slog.Logger

	Rand *rand.Rand

	lastProgram int
}

func New(fleet *camera.Fleet, sw Switcher, clk clock.Clock, cfg Config, bus *event.Bus, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		fleet:  fleet,
		sw:     sw,
		clock:  clk,
		cfg:    cfg,
		bus:    bus,
		logger: logger.With("component", "orchestrator"),
		Rand:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// Init checks the switcher against the fleet and records the live program
// for drift detection.
func (o *Orchestrator) Init(ctx context.Context) (Stations, error) {
	st, err := o.Reconstruct(ctx)
	if err != nil {
		return Stations{}, err
	}
	o.lastProgram = st.Program.ID
	o.logger.Info("stations", "program", st.Program.Name, "preview", st.Preview.Name, "standby", st.Standby.Name)
	return st, nil
}

// Activate puts target on program, then re-aims the idle cameras.
func (o *Orchestrator) Activate(ctx context.Context, target position.Position) (event.Report, error) {
	if !target.Valid() {
		return event.Report{}, ErrUnknownTarget
	}
	start := o.clock.Now()
	ctx, traceID := trace.Ensure(ctx)
	logger := o.logger.With("trace_id", traceID, "target", target.String())

	before, err := o.Reconstruct(ctx)
	if err != nil {
		return event.Report{}, err
	}
	report := event.Report{
		TraceID: traceID,
		Time:    start,
		Target:  target,
		Before:  before.Snapshot(),
	}

	if before.Program.Position() == target {
		report.Action = event.ActionNoOp
		report.After = report.Before
		logger.Info("already on program", "camera", before.Program.Name)
		o.finish(logger, event.Activated, &report, start)
		return report, nil
	}

	uninitialized := !before.Program.Position().Valid() ||
		!before.Preview.Position().Valid() ||
		!before.Standby.Position().Valid()

	idle := o.idleAt(before, target)
	var carrier *camera.Camera
	switch {
	case uninitialized:
		report.Action = event.ActionUninitialized
		carrier = before.Preview
		if err := o.stage(ctx, carrier, target); err != nil {
			return report, err
		}
	case before.Preview.Position() == target:
		report.Action = event.ActionPromote
		carrier = before.Preview
		if before.livePreview != carrier.ID {
			if err := o.setPreview(carrier); err != nil {
				return report, err
			}
		}
	case before.Standby.Position() == target:
		report.Action = event.ActionStageStandby
		carrier = before.Standby
		if err := o.setPreview(carrier); err != nil {
			return report, err
		}
	case idle != nil:
		report.Action = event.ActionStageIdle
		carrier = idle
		if err := o.setPreview(carrier); err != nil {
			return report, err
		}
	default:
		report.Action = event.ActionRepurpose
		carrier = before.Standby
		if err := o.stage(ctx, carrier, target); err != nil {
			return report, err
		}
	}
	logger.Info("switching", "action", report.Action, "camera", carrier.Name)

	if err := o.commit(); err != nil {
		return report, err
	}
	if prog, err := o.sw.Program(); err == nil {
		o.lastProgram = prog
	} else {
		o.lastProgram = carrier.ID
	}

	after, err := o.Reconstruct(ctx)
	if err != nil {
		return report, err
	}
	if after.Program != carrier {
		logger.Warn("switcher program is not the staged camera", "want", carrier.Name, "got", after.Program.Name)
	}

	o.rebalance(ctx, logger, after, target, before.Preview.Position())
	report.After = after.Snapshot()
	o.finish(logger, event.Activated, &report, start)
	return report, nil
}

// Rebalance re-aims preview and standby without changing program.
func (o *Orchestrator) Rebalance(ctx context.Context) (event.Report, error) {
	start := o.clock.Now()
	ctx, traceID := trace.Ensure(ctx)
	logger := o.logger.With("trace_id", traceID)

	st, err := o.Reconstruct(ctx)
	if err != nil {
		return event.Report{}, err
	}
	report := event.Report{
		TraceID: traceID,
		Time:    start,
		Target:  position.Unknown,
		Action:  event.ActionRebalance,
		Before:  st.Snapshot(),
	}
	o.rebalance(ctx, logger, st, position.Unknown, st.Preview.Position())
	report.After = st.Snapshot()
	o.finish(logger, event.Rebalanced, &report, start)
	return report, nil
}

// CheckDrift compares the live program with the last one we committed. On a
// mismatch every camera's tracked preset is discarded.
func (o *Orchestrator) CheckDrift(ctx context.Context) (bool, error) {
	prog, err := o.sw.Program()
	if err != nil {
		return false, fmt.Errorf("orchestrator: read program: %w", err)
	}
	if prog == o.lastProgram {
		return false, nil
	}

	prev := o.lastProgram
	o.lastProgram = prog
	o.fleet.InvalidateAll()

	traceID, _ := trace.FromContext(ctx)
	o.logger.Warn("program changed outside gracecam, presets invalidated", "was", prev, "now", prog)
	o.bus.Publish(event.Event{
		Type:            event.DriftDetected,
		TraceID:         traceID,
		PreviousProgram: prev,
		Program:         prog,
	})
	return true, nil
}

// idleAt returns a camera outside the three stations that already shows
// target, or nil.
func (o *Orchestrator) idleAt(st Stations, target position.Position) *camera.Camera {
	for _, c := range o.fleet.All() {
		if c == st.Program || c == st.Preview || c == st.Standby {
			continue
		}
		if c.Position() == target {
			return c
		}
	}
	return nil
}

// stage puts cam on preview and waits for it to reach target.
func (o *Orchestrator) stage(ctx context.Context, cam *camera.Camera, target position.Position) error {
	if err := o.setPreview(cam); err != nil {
		return err
	}
	if err := o.fleet.Move(ctx, cam, target, nil); err != nil {
		// The transition still happens; the shot is just not framed.
		o.logger.Error("staging move failed", "camera", cam.Name, "error", err)
	}
	o.clock.Sleep(o.fleet.MoveDelay())
	return nil
}

func (o *Orchestrator) setPreview(cam *camera.Camera) error {
	if err := o.sw.SetPreview(cam.ID); err != nil {
		return fmt.Errorf("orchestrator: set preview %s: %w", cam, err)
	}
	return nil
}

func (o *Orchestrator) commit() error {
	if err := o.sw.Auto(); err != nil {
		return fmt.Errorf("orchestrator: transition: %w", err)
	}
	o.clock.Sleep(o.cfg.Settle)
	return nil
}

// rebalance gives the preview camera a random shot and the standby camera a
// fallback shot, neither duplicating program or each other.
func (o *Orchestrator) rebalance(ctx context.Context, logger *slog.Logger, st Stations, target, prevPreview position.Position) {
	programPreset := st.Program.Position()

	exclude := []position.Position{target, programPreset, st.Preview.Position(), prevPreview}
	var pool []position.Position
	for _, p := range o.cfg.Random {
		if !slices.Contains(exclude, p) {
			pool = append(pool, p)
		}
	}

	previewPos := position.Unknown
	if len(pool) > 0 {
		previewPos = pool[o.Rand.IntN(len(pool))]
		o.fleet.Move(ctx, st.Preview, previewPos, nil)
	} else {
		logger.Info("no random position left for preview", "camera", st.Preview.Name)
	}

	standbyPos := position.Unknown
	for _, p := range o.cfg.Standby {
		if p != previewPos && p != programPreset && p != target {
			standbyPos = p
			break
		}
	}
	if standbyPos.Valid() {
		o.fleet.Move(ctx, st.Standby, standbyPos, nil)
	} else {
		logger.Info("no fallback position left for standby", "camera", st.Standby.Name)
	}
}

func (o *Orchestrator) finish(logger *slog.Logger, typ event.Type, report *event.Report, start time.Time) {
	report.Duration = o.clock.Now().Sub(start)
	logger.Info("report",
		"action", report.Action,
		"before", report.Before.String(),
		"after", report.After.String(),
		"duration", report.Duration,
	)
	r := *report
	o.bus.Publish(event.Event{Type: typ, TraceID: report.TraceID, Report: &r})
}
