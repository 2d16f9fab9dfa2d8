package event

import (
	"sync/atomic"
	"testing"
)

func TestPublishFansOut(t *testing.T) {
	bus := NewBus()
	var activated, drift atomic.Int32
	bus.Subscribe(Activated, func(e Event) { activated.Add(1) })
	bus.Subscribe(Activated, func(e Event) { activated.Add(1) })
	bus.Subscribe(DriftDetected, func(e Event) { drift.Add(1) })

	bus.Publish(Event{Type: Activated, Report: &Report{Action: ActionPromote}})
	bus.Wait()

	if got := activated.Load(); got != 2 {
		t.Errorf("got %d activated calls, want 2", got)
	}
	if got := drift.Load(); got != 0 {
		t.Errorf("got %d drift calls, want 0", got)
	}
}

func TestNilBus(t *testing.T) {
	var bus *Bus
	bus.Publish(Event{Type: Activated})
	bus.Wait()
}
