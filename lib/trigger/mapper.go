package trigger

import (
	"fmt"
	"strings"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"

	"github.com/after5cst/gracecam/lib/position"
)

// Rule maps every note for which When evaluates true to Position. When is an
// expr expression over note, octave, pitch, channel and velocity.
type Rule struct {
	When     string
	Position position.Position

	program *vm.Program
}

type Mapper struct {
	table map[string]position.Position
	rules []Rule
}

func noteEnv(n Note) map[string]interface{} {
	return map[string]interface{}{
		"note":     n.Name(),
		"octave":   n.Octave(),
		"pitch":    int(n.Pitch),
		"channel":  int(n.Channel),
		"velocity": int(n.Velocity),
	}
}

// NewMapper builds a mapper from a table keyed by pitch class ("C#") or by
// pitch class and octave ("C#3"). Keys are case-insensitive.
func NewMapper(table map[string]position.Position, rules []Rule) (*Mapper, error) {
	m := &Mapper{table: make(map[string]position.Position, len(table))}
	for k, p := range table {
		if !p.Valid() {
			return nil, fmt.Errorf("trigger: note %q maps to invalid position %v", k, p)
		}
		m.table[strings.ToUpper(strings.TrimSpace(k))] = p
	}
	for _, r := range rules {
		if !r.Position.Valid() {
			return nil, fmt.Errorf("trigger: rule %q maps to invalid position %v", r.When, r.Position)
		}
		program, err := expr.Compile(r.When, expr.Env(noteEnv(Note{})), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("trigger: rule %q: %w", r.When, err)
		}
		r.program = program
		m.rules = append(m.rules, r)
	}
	return m, nil
}

// Lookup resolves a note: rules in order, then the octave-qualified name,
// then the pitch class.
func (m *Mapper) Lookup(n Note) (position.Position, bool) {
	env := noteEnv(n)
	for _, r := range m.rules {
		out, err := expr.Run(r.program, env)
		if err != nil {
			continue
		}
		if hit, ok := out.(bool); ok && hit {
			return r.Position, true
		}
	}
	if p, ok := m.table[fmt.Sprintf("%s%d", n.Name(), n.Octave())]; ok {
		return p, true
	}
	if p, ok := m.table[n.Name()]; ok {
		return p, true
	}
	return position.Unknown, false
}
