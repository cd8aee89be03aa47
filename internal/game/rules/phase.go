package rules

import (
	"fmt"
	"strings"
)

// Phase is the exclusive sub-state of a duel turn.
type Phase int

const (
	PhaseTurnStart Phase = iota
	PhaseMountainSelect
	PhaseForestSelect
	PhaseIslandSelect
	PhaseSwampSelect
	PhaseCounterSelect
	PhaseGameOver
)

var phaseNames = map[Phase]string{
	PhaseTurnStart:      "TURN_START",
	PhaseMountainSelect: "MOUNTAIN_SELECT",
	PhaseForestSelect:   "FOREST_SELECT",
	PhaseIslandSelect:   "ISLAND_SELECT",
	PhaseSwampSelect:    "SWAMP_SELECT",
	PhaseCounterSelect:  "COUNTER_SELECT",
	PhaseGameOver:       "GAME_OVER",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// IsSelection reports whether the phase is waiting on the current player to pick a target.
func (p Phase) IsSelection() bool {
	switch p {
	case PhaseMountainSelect, PhaseForestSelect, PhaseIslandSelect, PhaseSwampSelect:
		return true
	}
	return false
}

// MarshalText encodes the phase by name so clients do not depend on ordinals.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	name := strings.ToUpper(strings.TrimSpace(string(text)))
	for phase, n := range phaseNames {
		if n == name {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}
