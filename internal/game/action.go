package game

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/landsduel/duel-server-go/internal/game/cards"
)

// ActionKind names a player action on the wire.
type ActionKind string

const (
	ActionPlayCard       ActionKind = "play card"
	ActionMountainSelect ActionKind = "mountain select"
	ActionForestSelect   ActionKind = "forest select"
	ActionIslandSelect   ActionKind = "island select"
	ActionSwampSelect    ActionKind = "swamp select"
	ActionCounterSelect  ActionKind = "counter select"
	ActionEndTurn        ActionKind = "end turn"
)

// Action is the closed set of player actions. Decoded actions have already passed
// shape checks; range checks against the live duel happen in Duel.Apply.
type Action interface {
	Kind() ActionKind
	isAction()
}

// PlayCard plays a card from the visible or hidden part of the hand.
type PlayCard struct {
	Index   int  `json:"index"`
	Visible bool `json:"visible"`
}

// MountainSelect picks the opposing board type to destroy.
type MountainSelect struct {
	Type cards.Type `json:"type"`
}

// ForestSelect picks the own discard card to return to hand.
type ForestSelect struct {
	Index int `json:"index"`
}

// IslandSelect lists the kept top-of-deck window indices in their new top-to-bottom order.
type IslandSelect struct {
	Order []int `json:"order"`
}

// SwampSelect picks the opposing hand card to discard.
type SwampSelect struct {
	Index int `json:"index"`
}

// HandRef addresses one card in a hand.
type HandRef struct {
	Index   int  `json:"index"`
	Visible bool `json:"visible"`
}

// CounterSelect answers a counter offer. Cards is set only when Counter is true.
type CounterSelect struct {
	Counter bool      `json:"counter"`
	Cards   []HandRef `json:"cards,omitempty"`
}

// EndTurn ends the acting player's turn.
type EndTurn struct{}

func (PlayCard) Kind() ActionKind       { return ActionPlayCard }
func (MountainSelect) Kind() ActionKind { return ActionMountainSelect }
func (ForestSelect) Kind() ActionKind   { return ActionForestSelect }
func (IslandSelect) Kind() ActionKind   { return ActionIslandSelect }
func (SwampSelect) Kind() ActionKind    { return ActionSwampSelect }
func (CounterSelect) Kind() ActionKind  { return ActionCounterSelect }
func (EndTurn) Kind() ActionKind        { return ActionEndTurn }

func (PlayCard) isAction()       {}
func (MountainSelect) isAction() {}
func (ForestSelect) isAction()   {}
func (IslandSelect) isAction()   {}
func (SwampSelect) isAction()    {}
func (CounterSelect) isAction()  {}
func (EndTurn) isAction()        {}

// Wire shapes use pointers so a missing field is told apart from a zero value.
type playCardWire struct {
	Index   *int  `json:"index"`
	Visible *bool `json:"visible"`
}

type mountainSelectWire struct {
	Type *cards.Type `json:"type"`
}

type indexWire struct {
	Index *int `json:"index"`
}

type islandSelectWire struct {
	Order *[]int `json:"order"`
}

type handRefWire struct {
	Index   *int  `json:"index"`
	Visible *bool `json:"visible"`
}

type counterSelectWire struct {
	Counter *bool         `json:"counter"`
	Cards   []handRefWire `json:"cards"`
}

// DecodeAction turns a wire action into a typed action, checking presence, types
// and the ranges that do not depend on game state.
func DecodeAction(kind ActionKind, payload json.RawMessage) (Action, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		payload = json.RawMessage("{}")
	}

	switch kind {
	case ActionPlayCard:
		var w playCardWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, invalid("play card: %v", err)
		}
		if w.Index == nil || w.Visible == nil {
			return nil, invalid("play card: index and visible are required")
		}
		if *w.Index < 0 {
			return nil, invalid("play card: negative index %d", *w.Index)
		}
		return PlayCard{Index: *w.Index, Visible: *w.Visible}, nil

	case ActionMountainSelect:
		var w mountainSelectWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, invalid("mountain select: %v", err)
		}
		if w.Type == nil {
			return nil, invalid("mountain select: type is required")
		}
		return MountainSelect{Type: *w.Type}, nil

	case ActionForestSelect, ActionSwampSelect:
		var w indexWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, invalid("%s: %v", kind, err)
		}
		if w.Index == nil {
			return nil, invalid("%s: index is required", kind)
		}
		if *w.Index < 0 {
			return nil, invalid("%s: negative index %d", kind, *w.Index)
		}
		if kind == ActionForestSelect {
			return ForestSelect{Index: *w.Index}, nil
		}
		return SwampSelect{Index: *w.Index}, nil

	case ActionIslandSelect:
		var w islandSelectWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, invalid("island select: %v", err)
		}
		if w.Order == nil {
			return nil, invalid("island select: order is required")
		}
		order := append([]int{}, (*w.Order)...)
		if len(order) > islandWindow {
			return nil, invalid("island select: %d indices for a window of %d", len(order), islandWindow)
		}
		seen := make(map[int]bool, len(order))
		for _, idx := range order {
			if idx < 0 || idx >= islandWindow {
				return nil, invalid("island select: index %d out of range", idx)
			}
			if seen[idx] {
				return nil, invalid("island select: duplicate index %d", idx)
			}
			seen[idx] = true
		}
		return IslandSelect{Order: order}, nil

	case ActionCounterSelect:
		var w counterSelectWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, invalid("counter select: %v", err)
		}
		if w.Counter == nil {
			return nil, invalid("counter select: counter is required")
		}
		if !*w.Counter {
			return CounterSelect{Counter: false}, nil
		}
		if len(w.Cards) != 2 {
			return nil, invalid("counter select: exactly two cards required, got %d", len(w.Cards))
		}
		refs := make([]HandRef, 0, 2)
		for _, c := range w.Cards {
			if c.Index == nil || c.Visible == nil {
				return nil, invalid("counter select: card index and visible are required")
			}
			if *c.Index < 0 {
				return nil, invalid("counter select: negative index %d", *c.Index)
			}
			refs = append(refs, HandRef{Index: *c.Index, Visible: *c.Visible})
		}
		if refs[0] == refs[1] {
			return nil, invalid("counter select: the two cards must be distinct")
		}
		return CounterSelect{Counter: true, Cards: refs}, nil

	case ActionEndTurn:
		return EndTurn{}, nil
	}

	return nil, invalid("unknown action %q", kind)
}

// EncodeAction is the inverse of DecodeAction, used when recording replays.
func EncodeAction(a Action) (ActionKind, json.RawMessage, error) {
	if a == nil {
		return "", nil, fmt.Errorf("nil action")
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", a.Kind(), err)
	}
	return a.Kind(), payload, nil
}

func invalid(format string, args ...any) error {
	return reject(RejectInvalidPayload, format, args...)
}
