// Package modulation drives busy/idle CPU phases from a bit sequence.
package modulation

import (
	"fmt"
	"time"

	"github.com/robotalks/thermo.go/pkg/bits"
)

// Symbol is the CPU activity for one bit.
type Symbol byte

// Symbols.
const (
	Idle Symbol = 0
	Busy Symbol = 1
)

// String implements fmt.Stringer.
func (s Symbol) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Busy:
		return "BUSY"
	}
	return fmt.Sprintf("Symbol(%d)", byte(s))
}

// IsValid tells if the symbol is BUSY or IDLE.
func (s Symbol) IsValid() bool {
	return s == Idle || s == Busy
}

// Entry is one timed phase of a plan.
type Entry struct {
	Symbol   Symbol
	Duration time.Duration
}

// Plan is the ordered list of phases of one transmission.
type Plan []Entry

// PlanFromBits maps 1 to BUSY and 0 to IDLE, each lasting d.
// Values other than 0 and 1 are carried through as invalid symbols.
func PlanFromBits(seq bits.Sequence, d time.Duration) Plan {
	plan := make(Plan, len(seq))
	for i, b := range seq {
		plan[i] = Entry{Symbol: Symbol(b), Duration: d}
	}
	return plan
}

// PlanFromString maps '1' to BUSY and '0' to IDLE, each lasting d.
// Other characters become invalid symbols.
func PlanFromString(s string, d time.Duration) Plan {
	plan := make(Plan, len(s))
	for i := 0; i < len(s); i++ {
		sym := Symbol(s[i])
		switch s[i] {
		case '0':
			sym = Idle
		case '1':
			sym = Busy
		}
		plan[i] = Entry{Symbol: sym, Duration: d}
	}
	return plan
}

// Duration is the nominal total duration of the plan.
func (p Plan) Duration() (total time.Duration) {
	for _, e := range p {
		total += e.Duration
	}
	return
}
