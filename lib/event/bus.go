package event

import (
	"fmt"
	"sync"
	"time"

	"github.com/after5cst/gracecam/lib/position"
)

type Type string

const (
	Activated      Type = "Activated"
	Rebalanced     Type = "Rebalanced"
	DriftDetected  Type = "DriftDetected"
	TriggerDropped Type = "TriggerDropped"
)

type Action string

const (
	ActionNoOp          Action = "noop"
	ActionPromote       Action = "promote"
	ActionStageStandby  Action = "stage-standby"
	ActionStageIdle     Action = "stage-idle"
	ActionRepurpose     Action = "repurpose"
	ActionUninitialized Action = "uninitialized"
	ActionRebalance     Action = "rebalance"
)

// Slot is one station as reported: which camera holds it and what it shows.
type Slot struct {
	Camera string `json:"camera"`
	Source int    `json:"source"`
	Preset string `json:"preset"`
}

type Snapshot struct {
	Program Slot `json:"program"`
	Preview Slot `json:"preview"`
	Standby Slot `json:"standby"`
}

func (s Snapshot) String() string {
	return fmt.Sprintf("program=%s:%s preview=%s:%s standby=%s:%s",
		s.Program.Camera, s.Program.Preset,
		s.Preview.Camera, s.Preview.Preset,
		s.Standby.Camera, s.Standby.Preset)
}

// Report describes one switching decision.
type Report struct {
	TraceID  string            `json:"trace_id"`
	Time     time.Time         `json:"time"`
	Target   position.Position `json:"target"`
	Action   Action            `json:"action"`
	Before   Snapshot          `json:"before"`
	After    Snapshot          `json:"after"`
	Duration time.Duration     `json:"duration"`
}

type Event struct {
	Type    Type
	TraceID string
	Report  *Report

	// DriftDetected
	PreviousProgram int
	Program         int

	// TriggerDropped
	Reason string
}

type Handler func(e Event)

// Bus fans events out to subscribers, each on its own goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	inflight sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]Handler),
	}
}

func (b *Bus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish on a nil Bus is a no-op.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, handler := range b.handlers[e.Type] {
		b.inflight.Add(1)
		go func(h Handler) {
			defer b.inflight.Done()
			h(e)
		}(handler)
	}
}

// Wait blocks until every handler started so far has returned.
func (b *Bus) Wait() {
	if b == nil {
		return
	}
	b.inflight.Wait()
}
