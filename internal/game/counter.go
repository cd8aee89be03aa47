package game

import (
	"fmt"

	"github.com/landsduel/duel-server-go/internal/game/cards"
	"github.com/landsduel/duel-server-go/internal/game/rules"
)

// askCounter raises an offer and hands the decision to the offer's responder.
func (d *Duel) askCounter(offer rules.Offer) {
	pushed, err := d.offers.Push(offer)
	if err != nil {
		// counterSelect checks the depth before paying the cost, so this cannot happen.
		panic(fmt.Sprintf("askCounter: %v", err))
	}
	d.phase = rules.PhaseCounterSelect
	d.publish(rules.Event{Type: rules.EventCounterOffered, Player: pushed.Responder(), Card: pushed.Ability,
		Amount: d.offers.Depth(),
		Text:   fmt.Sprintf("%s may counter %s", d.players[pushed.Responder()].Name, pushed.Ability)})
}

func (d *Duel) counterSelect(seat int, a CounterSelect) error {
	offer, ok := d.PendingOffer()
	if !ok {
		if seat != d.current {
			return reject(RejectNotYourTurn, "no counter offer is waiting on seat %d", seat)
		}
		return reject(RejectWrongPhase, "expected %s, duel is in %s", rules.PhaseCounterSelect, d.phase)
	}
	if seat != offer.Responder() {
		return reject(RejectNotYourTurn, "seat %d is not the responder", seat)
	}

	if !a.Counter {
		base, countered, err := d.offers.Settle()
		if err != nil {
			panic(fmt.Sprintf("counterSelect: %v", err))
		}
		d.publish(rules.Event{Type: rules.EventCounterDeclined, Player: seat, Card: offer.Ability,
			Text: fmt.Sprintf("%s let %s resolve", d.players[seat].Name, offer.Ability)})
		d.resolve(base, countered)
		return nil
	}

	paid, err := d.counterCost(seat, offer, a.Cards)
	if err != nil {
		return err
	}
	if d.offers.Depth() >= d.offers.MaxDepth() {
		return invalid("counter chain is already %d deep", d.offers.Depth())
	}

	p := d.players[seat]
	for _, card := range paid {
		if _, ok := p.Visible.Remove(card.ID); !ok {
			p.Hidden.Remove(card.ID)
		}
		p.Discard.Push(card)
	}
	d.publish(rules.Event{Type: rules.EventCounterPlayed, Player: seat, Card: offer.Ability,
		Text: fmt.Sprintf("%s countered %s with Island and %s", p.Name, offer.Ability, offer.Ability)})

	d.askCounter(rules.Offer{Kind: rules.OfferCounter, Ability: cards.Island, Actor: seat})
	return nil
}

// counterCost resolves the two hand references to cards and checks they pay for
// countering offer: one Island plus one card of the contested type, in either order.
func (d *Duel) counterCost(seat int, offer rules.Offer, refs []HandRef) ([2]cards.Card, error) {
	var paid [2]cards.Card
	if len(refs) != 2 {
		return paid, invalid("exactly two cards required, got %d", len(refs))
	}
	if refs[0] == refs[1] {
		return paid, invalid("the two cards must be distinct")
	}
	p := d.players[seat]
	for i, ref := range refs {
		hand := *p.hand(ref.Visible)
		if ref.Index < 0 || ref.Index >= len(hand) {
			return paid, invalid("hand index %d out of range [0,%d)", ref.Index, len(hand))
		}
		paid[i] = hand[ref.Index]
	}

	a, b := paid[0].Type, paid[1].Type
	if !(a == cards.Island && b == offer.Ability) && !(b == cards.Island && a == offer.Ability) {
		return paid, invalid("%s and %s do not counter %s", a, b, offer.Ability)
	}
	return paid, nil
}
