package dispatch

import (
	"sync"
	"time"

	"github.com/after5cst/gracecam/lib/metrics"
	"github.com/after5cst/gracecam/lib/position"
	"github.com/after5cst/gracecam/lib/trace"
	"github.com/after5cst/gracecam/lib/trigger"
)

type Source string

const (
	SourceMIDI   Source = "midi"
	SourceManual Source = "manual"
	SourceDeck   Source = "deck"
)

// Trigger is one request for a shot. MIDI triggers carry the note and are
// mapped on the control loop; the others carry the position directly.
type Trigger struct {
	ID       string
	Source   Source
	Position position.Position
	Note     *trigger.Note
	Received time.Time
}

func (t Trigger) String() string {
	if t.Note != nil {
		return t.Note.String()
	}
	return string(t.Source) + " " + t.Position.String()
}

// Queue is an unbounded FIFO between the inputs and the control loop.
type Queue struct {
	mu     sync.Mutex
	items  []Trigger
	woken  bool
	notify chan struct{}
}

func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

func (q *Queue) Push(t Trigger) {
	q.mu.Lock()
	q.items = append(q.items, t)
	metrics.QueueDepth.Set(float64(len(q.items)))
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// PushPosition queues a shot request and returns it.
func (q *Queue) PushPosition(src Source, p position.Position) Trigger {
	t := Trigger{ID: trace.NewID(), Source: src, Position: p, Received: time.Now()}
	q.Push(t)
	return t
}

func (q *Queue) PushNote(n trigger.Note) Trigger {
	t := Trigger{ID: trace.NewID(), Source: SourceMIDI, Note: &n, Received: time.Now()}
	q.Push(t)
	return t
}

// Wake makes a waiting Pop return early, empty-handed, so the loop checks the
// switcher without waiting out its poll.
func (q *Queue) Wake() {
	q.mu.Lock()
	q.woken = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop waits up to timeout for the oldest trigger. It returns false on
// timeout or Wake.
func (q *Queue) Pop(timeout time.Duration) (Trigger, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			t := q.items[0]
			q.items = q.items[1:]
			metrics.QueueDepth.Set(float64(len(q.items)))
			q.mu.Unlock()
			return t, true
		}
		if q.woken {
			q.woken = false
			q.mu.Unlock()
			return Trigger{}, false
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-timer.C:
			return Trigger{}, false
		}
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
