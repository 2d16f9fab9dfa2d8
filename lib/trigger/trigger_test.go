package trigger

import (
	"testing"

	"github.com/after5cst/gracecam/lib/position"
)

func on(ch, pitch uint8) Note  { return Note{On: true, Channel: ch, Pitch: pitch, Velocity: 100} }
func off(ch, pitch uint8) Note { return Note{Channel: ch, Pitch: pitch} }

func TestNoteName(t *testing.T) {
	n := on(0, 61)
	if n.Name() != "C#" {
		t.Errorf("got %q, want %q", n.Name(), "C#")
	}
	if n.Octave() != 3 {
		t.Errorf("got octave %d, want 3", n.Octave())
	}
	if got := n.String(); got != "MIDI C#3 ON (ch 0)" {
		t.Errorf("got %q", got)
	}
}

func TestDebounceMatchingPair(t *testing.T) {
	var d Debouncer
	if v := d.Feed(on(0, 60)); v != Enqueue {
		t.Fatalf("note-on: got %v, want enqueue", v)
	}
	if v := d.Feed(off(0, 60)); v != Swallow {
		t.Fatalf("matching off: got %v, want swallow", v)
	}
	// The marker was reset, so a second identical off is not a match.
	if v := d.Feed(off(0, 60)); v != LogOnly {
		t.Errorf("repeated off: got %v, want log-only", v)
	}
}

func TestDebounceMatchesChannelAndPitch(t *testing.T) {
	var d Debouncer
	d.Feed(on(1, 60))
	// Same pitch on another channel, and a pitch equal to the channel number.
	if v := d.Feed(off(0, 60)); v != LogOnly {
		t.Errorf("other channel: got %v, want log-only", v)
	}
	if v := d.Feed(off(1, 1)); v != LogOnly {
		t.Errorf("pitch==channel: got %v, want log-only", v)
	}
	if v := d.Feed(off(1, 60)); v != Swallow {
		t.Errorf("after unrelated offs: got %v, want swallow", v)
	}
}

func TestDebounceOverlappingNotes(t *testing.T) {
	var d Debouncer
	d.Feed(on(0, 60))
	d.Feed(on(0, 62))
	if v := d.Feed(off(0, 60)); v != LogOnly {
		t.Errorf("stale off: got %v, want log-only", v)
	}
	if v := d.Feed(off(0, 62)); v != Swallow {
		t.Errorf("latest off: got %v, want swallow", v)
	}
}

func TestMapperTable(t *testing.T) {
	m, err := NewMapper(map[string]position.Position{
		"C":   position.Pulpit,
		"c#":  position.Pulpit,
		"D":   position.Leader,
		"E2":  position.Organ,
		"E":   position.Wide,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		pitch uint8
		want  position.Position
		ok    bool
	}{
		{60, position.Pulpit, true},
		{73, position.Pulpit, true},
		{62, position.Leader, true},
		{52, position.Organ, true},
		{64, position.Wide, true},
		{71, position.Unknown, false},
	} {
		got, ok := m.Lookup(on(0, tc.pitch))
		if got != tc.want || ok != tc.ok {
			t.Errorf("pitch %d: got %v/%v, want %v/%v", tc.pitch, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMapperRules(t *testing.T) {
	m, err := NewMapper(map[string]position.Position{"C": position.Pulpit}, []Rule{
		{When: "octave < 1", Position: position.Wide},
		{When: `channel == 9 && note == "C"`, Position: position.Piano},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := m.Lookup(on(0, 24)); got != position.Wide {
		t.Errorf("low C: got %v, want WIDE", got)
	}
	if got, _ := m.Lookup(on(9, 60)); got != position.Piano {
		t.Errorf("channel 9: got %v, want PIANO", got)
	}
	if got, _ := m.Lookup(on(0, 60)); got != position.Pulpit {
		t.Errorf("table fallthrough: got %v, want PULPIT", got)
	}
}

func TestMapperRejectsBadRule(t *testing.T) {
	if _, err := NewMapper(nil, []Rule{{When: "pitch +", Position: position.Wide}}); err == nil {
		t.Error("expected compile error")
	}
	if _, err := NewMapper(nil, []Rule{{When: "pitch", Position: position.Wide}}); err == nil {
		t.Error("expected non-bool rule to be rejected")
	}
	if _, err := NewMapper(map[string]position.Position{"C": position.Unknown}, nil); err == nil {
		t.Error("expected UNKNOWN target to be rejected")
	}
}
