package cards

import (
	"fmt"
	"strings"
)

// Type is one of the five land types a duel is played with.
type Type int

const (
	Plains Type = iota
	Mountain
	Forest
	Island
	Swamp
)

// NumTypes is the size of the closed card type set.
const NumTypes = 5

// CopiesPerType is how many cards of each type a fresh deck holds.
const CopiesPerType = 5

// DeckSize is the number of cards each player owns for the whole game.
const DeckSize = NumTypes * CopiesPerType

// All lists every card type in catalog order.
var All = [NumTypes]Type{Plains, Mountain, Forest, Island, Swamp}

var typeNames = map[Type]string{
	Plains:   "Plains",
	Mountain: "Mountain",
	Forest:   "Forest",
	Island:   "Island",
	Swamp:    "Swamp",
}

var wireNames = map[string]Type{
	"plains":   Plains,
	"mountain": Mountain,
	"forest":   Forest,
	"island":   Island,
	"swamp":    Swamp,
}

// Valid reports whether t belongs to the catalog.
func (t Type) Valid() bool {
	return t >= Plains && t <= Swamp
}

// String returns the display name of the card type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TYPE_%d", int(t))
}

// Parse converts a wire or display name into a card type.
func Parse(s string) (Type, error) {
	if t, ok := wireNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown card type %q", s)
}

// MarshalText encodes the type as its lower-case wire name.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid card type %d", int(t))
	}
	return []byte(strings.ToLower(typeNames[t])), nil
}

// UnmarshalText decodes a wire name.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
