package trigger

import "fmt"

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

type Note struct {
	On       bool
	Channel  uint8
	Pitch    uint8
	Velocity uint8
}

// Name is the pitch class, e.g. "C#".
func (n Note) Name() string {
	return noteNames[int(n.Pitch)%12]
}

// Octave uses the convention where pitch 60 is C3.
func (n Note) Octave() int {
	return int(n.Pitch)/12 - 2
}

func (n Note) String() string {
	state := "OFF"
	if n.On {
		state = "ON"
	}
	return fmt.Sprintf("MIDI %s%d %s (ch %d)", n.Name(), n.Octave(), state, n.Channel)
}

type Verdict int

const (
	// Enqueue: a note-on to be switched on.
	Enqueue Verdict = iota
	// Swallow: the note-off closing the previous note-on.
	Swallow
	// LogOnly: a note-off that closes nothing we saw.
	LogOnly
)

func (v Verdict) String() string {
	switch v {
	case Enqueue:
		return "enqueue"
	case Swallow:
		return "swallow"
	}
	return "log-only"
}

// Debouncer pairs each note-off with the note-on immediately before it,
// matching on channel and pitch.
type Debouncer struct {
	last *Note
}

func (d *Debouncer) Feed(n Note) Verdict {
	if n.On {
		d.last = &n
		return Enqueue
	}
	if d.last != nil && d.last.Channel == n.Channel && d.last.Pitch == n.Pitch {
		d.last = nil
		return Swallow
	}
	return LogOnly
}
