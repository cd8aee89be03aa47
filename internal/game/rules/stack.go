package rules

import (
	"errors"
	"fmt"

	"github.com/landsduel/duel-server-go/internal/game/cards"
)

// OfferKind describes what a pending counter offer would let through.
type OfferKind int

const (
	// OfferAbility is the ability of a card that was just played.
	OfferAbility OfferKind = iota
	// OfferDestroy is a Mountain destroying a committed opposing board card.
	OfferDestroy
	// OfferRevive is a Forest returning a committed discard card to hand.
	OfferRevive
	// OfferCounter is a counter aimed at the offer directly beneath it.
	OfferCounter
)

var offerKindNames = map[OfferKind]string{
	OfferAbility: "ABILITY",
	OfferDestroy: "DESTROY",
	OfferRevive:  "REVIVE",
	OfferCounter: "COUNTER",
}

func (k OfferKind) String() string {
	if name, ok := offerKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OFFER_%d", int(k))
}

// Offer is a pending resolution waiting on the opponent's counter decision.
// It stores data only; the engine interprets it through a fixed dispatch table.
type Offer struct {
	Seq     uint64
	Kind    OfferKind
	Ability cards.Type // the card type a counter must pair with Island
	Actor   int        // seat whose effect is pending
	Source  cards.ID   // card on Actor's board that produced the effect
	Target  cards.ID   // committed target instance for destroy/revive
}

// Responder is the seat entitled to counter the offer.
func (o Offer) Responder() int {
	return 1 - o.Actor
}

// DefaultMaxDepth caps counter-the-counter nesting. Each level costs an Island
// and each player owns five, so legal play never reaches it.
const DefaultMaxDepth = 11

// ErrStackEmpty is returned when settling or popping an empty stack.
var ErrStackEmpty = errors.New("offer stack empty")

// ErrMaxDepth is returned when a push would exceed the depth cap.
var ErrMaxDepth = errors.New("maximum counter depth exceeded")

// OfferStack holds the nested counter offers of one duel. Only the top offer is live.
// Callers serialize access; the duel owning it is never shared unlocked.
type OfferStack struct {
	items    []Offer
	maxDepth int
	nextSeq  uint64
}

// NewOfferStack creates an empty stack. A non-positive maxDepth selects DefaultMaxDepth.
func NewOfferStack(maxDepth int) *OfferStack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &OfferStack{
		items:    make([]Offer, 0, 4),
		maxDepth: maxDepth,
	}
}

// Push places an offer on top and stamps it with a fresh sequence number.
func (s *OfferStack) Push(offer Offer) (Offer, error) {
	if len(s.items) >= s.maxDepth {
		return Offer{}, fmt.Errorf("%w (%d)", ErrMaxDepth, s.maxDepth)
	}
	s.nextSeq++
	offer.Seq = s.nextSeq
	s.items = append(s.items, offer)
	return offer, nil
}

// Peek returns the live offer without removing it.
func (s *OfferStack) Peek() (Offer, bool) {
	if len(s.items) == 0 {
		return Offer{}, false
	}
	return s.items[len(s.items)-1], true
}

// Depth returns the number of stacked offers.
func (s *OfferStack) Depth() int {
	return len(s.items)
}

// MaxDepth returns the nesting cap.
func (s *OfferStack) MaxDepth() int {
	return s.maxDepth
}

// IsEmpty returns whether no offer is pending.
func (s *OfferStack) IsEmpty() bool {
	return len(s.items) == 0
}

// List returns a copy of the stacked offers, base first.
func (s *OfferStack) List() []Offer {
	cpy := make([]Offer, len(s.items))
	copy(cpy, s.items)
	return cpy
}

// Settle resolves the whole stack once the live offer goes unanswered.
// The top offer takes effect; every counter that takes effect negates the offer
// below it, and a negated counter lets the offer below it through. The stack is
// emptied and the base offer is returned with whether it ended up countered.
func (s *OfferStack) Settle() (base Offer, countered bool, err error) {
	if len(s.items) == 0 {
		return Offer{}, false, ErrStackEmpty
	}
	base = s.items[0]
	// depth 1: base stands. Each extra level flips the outcome.
	countered = (len(s.items)-1)%2 == 1
	s.items = s.items[:0]
	return base, countered, nil
}

// Reset drops every pending offer.
func (s *OfferStack) Reset() {
	s.items = s.items[:0]
}
