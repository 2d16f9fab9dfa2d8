package midiio

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/after5cst/gracecam/lib/trigger"
)

func FindInPort(substr string) (drivers.In, error) {
	lower := strings.ToLower(substr)
	for _, port := range midi.GetInPorts() {
		if strings.Contains(strings.ToLower(port.String()), lower) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("no MIDI input port matching %q", substr)
}

// ListPorts names every MIDI input the driver can see.
func ListPorts() []string {
	var out []string
	for _, p := range midi.GetInPorts() {
		out = append(out, p.String())
	}
	return out
}

// Decode turns a note message into a Note. A note-on with velocity zero is a
// note-off. Anything else is ignored.
func Decode(msg midi.Message) (trigger.Note, bool) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return trigger.Note{On: true, Channel: ch, Pitch: key, Velocity: vel}, true
	case msg.GetNoteEnd(&ch, &key):
		return trigger.Note{Channel: ch, Pitch: key}, true
	}
	return trigger.Note{}, false
}

// Source buffers decoded notes from one input port.
type Source struct {
	Port string

	notes chan trigger.Note
	stop  func()
}

func Open(substr string, logger *slog.Logger) (*Source, error) {
	port, err := FindInPort(substr)
	if err != nil {
		return nil, err
	}
	return listen(port, logger)
}

func listen(port drivers.In, logger *slog.Logger) (*Source, error) {
	logger = logger.With("component", "midi", "port", port.String())
	s := &Source{
		Port:  port.String(),
		notes: make(chan trigger.Note, 256),
	}

	stop, err := midi.ListenTo(port, func(msg midi.Message, timestampms int32) {
		n, ok := Decode(msg)
		if !ok {
			logger.Debug("unhandled message", "msg", msg.String())
			return
		}
		select {
		case s.notes <- n:
		default:
			logger.Warn("note buffer full, dropping", "note", n.String())
		}
	}, midi.HandleError(func(err error) {
		logger.Warn("listener error", "error", err)
	}))
	if err != nil {
		return nil, fmt.Errorf("midiio: listen %s: %w", port.String(), err)
	}
	s.stop = stop
	logger.Info("listening")
	return s, nil
}

// Get waits up to timeout for the next note.
func (s *Source) Get(timeout time.Duration) (trigger.Note, bool) {
	select {
	case n := <-s.notes:
		return n, true
	case <-time.After(timeout):
		return trigger.Note{}, false
	}
}

func (s *Source) Close() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}
