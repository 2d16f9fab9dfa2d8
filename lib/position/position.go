package position

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a camera preset slot. The value is the slot number recalled on
// the camera.
type Position int

const (
	Unknown Position = -1
	Pulpit  Position = 0
	Leader  Position = 2
	Preset3 Position = 3
	Wide    Position = 4
	Organ   Position = 5
	Middle  Position = 7
	Piano   Position = 9
)

var names = map[Position]string{
	Unknown: "UNKNOWN",
	Pulpit:  "PULPIT",
	Leader:  "LEADER",
	Preset3: "PRESET3",
	Wide:    "WIDE",
	Organ:   "ORGAN",
	Middle:  "MIDDLE",
	Piano:   "PIANO",
}

// All returns every concrete position in slot order.
func All() []Position {
	return []Position{Pulpit, Leader, Preset3, Wide, Organ, Middle, Piano}
}

func (p Position) String() string {
	if n, ok := names[p]; ok {
		return n
	}
	return fmt.Sprintf("Position(%d)", int(p))
}

func (p Position) Valid() bool {
	_, ok := names[p]
	return ok && p != Unknown
}

func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText also accepts UNKNOWN so that reports round-trip.
func (p *Position) UnmarshalText(b []byte) error {
	if strings.EqualFold(string(b), names[Unknown]) {
		*p = Unknown
		return nil
	}
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Parse accepts a case-insensitive name or a slot number. UNKNOWN is never
// returned without an error.
func Parse(s string) (Position, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		p := Position(n)
		if !p.Valid() {
			return Unknown, fmt.Errorf("position: no preset slot %d", n)
		}
		return p, nil
	}
	upper := strings.ToUpper(s)
	for p, n := range names {
		if n == upper && p != Unknown {
			return p, nil
		}
	}
	return Unknown, fmt.Errorf("position: unknown name %q", s)
}

func ParseList(ss []string) ([]Position, error) {
	out := make([]Position, 0, len(ss))
	for _, s := range ss {
		p, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
