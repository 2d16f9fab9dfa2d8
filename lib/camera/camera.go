package camera

import (
	"fmt"
	"sync"

	"github.com/after5cst/gracecam/lib/clock"
	"github.com/after5cst/gracecam/lib/position"
)

type State int

const (
	StateUnknown State = iota
	StateMoving
	StateKnown
)

func (s State) String() string {
	switch s {
	case StateMoving:
		return "moving"
	case StateKnown:
		return "known"
	}
	return "unknown"
}

// Status is what we believe a camera is pointed at. Preset is the
// destination while Moving and the current preset when Known.
type Status struct {
	State  State
	Preset position.Position
}

func Known(p position.Position) Status  { return Status{State: StateKnown, Preset: p} }
func Moving(p position.Position) Status { return Status{State: StateMoving, Preset: p} }

var UnknownStatus = Status{State: StateUnknown, Preset: position.Unknown}

// Position is the tracked preset: only a Known status yields a real position.
func (s Status) Position() position.Position {
	if s.State != StateKnown {
		return position.Unknown
	}
	return s.Preset
}

func (s Status) String() string {
	switch s.State {
	case StateKnown:
		return s.Preset.String()
	case StateMoving:
		return fmt.Sprintf("moving->%s", s.Preset)
	}
	return position.Unknown.String()
}

type Camera struct {
	ID      int
	Name    string
	Address string

	mu      sync.Mutex
	status  Status
	gen     uint64
	pending clock.Timer
}

func New(id int, name, address string) *Camera {
	return &Camera{ID: id, Name: name, Address: address, status: UnknownStatus}
}

func (c *Camera) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Camera) Position() position.Position {
	return c.Status().Position()
}

func (c *Camera) String() string {
	return fmt.Sprintf("%s(%d)", c.Name, c.ID)
}

// supersede invalidates any pending completion and returns the new token.
// Caller holds c.mu.
func (c *Camera) supersede() uint64 {
	c.gen++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	return c.gen
}
