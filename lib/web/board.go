package web

import (
	"sync"
	"time"

	"github.com/after5cst/gracecam/lib/camera"
	"github.com/after5cst/gracecam/lib/event"
)

type CameraState struct {
	Name    string `json:"name"`
	Source  int    `json:"source"`
	Address string `json:"address"`
	State   string `json:"state"`
	Preset  string `json:"preset"`
}

// BoardState is what the operator page and /api/stations show.
type BoardState struct {
	Last      *event.Report `json:"last,omitempty"`
	Cameras   []CameraState `json:"cameras"`
	Drifts    int           `json:"drifts"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Board tracks the latest switching report and pushes it to the hub.
type Board struct {
	mu    sync.RWMutex
	last  *event.Report
	drift int
	at    time.Time
	fleet *camera.Fleet
	hub   *Hub
}

func NewBoard(hub *Hub, fleet *camera.Fleet) *Board {
	return &Board{hub: hub, fleet: fleet}
}

func (b *Board) RecordReport(r event.Report) {
	b.mu.Lock()
	b.last = &r
	b.at = time.Now()
	b.mu.Unlock()
	b.publish()
}

func (b *Board) RecordDrift() {
	b.mu.Lock()
	b.drift++
	b.at = time.Now()
	b.mu.Unlock()
	b.publish()
}

func (b *Board) publish() {
	if b.hub != nil {
		b.hub.BroadcastState(b.Snapshot())
	}
}

// Snapshot reads camera statuses live, so it reflects completed moves even
// between reports.
func (b *Board) Snapshot() BoardState {
	b.mu.RLock()
	state := BoardState{Drifts: b.drift, UpdatedAt: b.at}
	if b.last != nil {
		r := *b.last
		state.Last = &r
	}
	b.mu.RUnlock()

	for _, c := range b.fleet.All() {
		st := c.Status()
		state.Cameras = append(state.Cameras, CameraState{
			Name:    c.Name,
			Source:  c.ID,
			Address: c.Address,
			State:   st.State.String(),
			Preset:  st.Preset.String(),
		})
	}
	return state
}
