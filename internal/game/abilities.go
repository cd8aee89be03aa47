package game

import (
	"fmt"

	"github.com/landsduel/duel-server-go/internal/game/cards"
	"github.com/landsduel/duel-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// resolution is the pair of outcomes a settled offer can have.
type resolution struct {
	taken     func(d *Duel, o rules.Offer)
	countered func(d *Duel, o rules.Offer)
}

var resolutions map[rules.OfferKind]resolution

// abilities holds the uncountered effect of each card type.
var abilities map[cards.Type]func(d *Duel, o rules.Offer)

func init() {
	resolutions = map[rules.OfferKind]resolution{
		rules.OfferAbility: {taken: abilityTaken, countered: abilityCountered},
		rules.OfferDestroy: {taken: effectStands, countered: destroyCountered},
		rules.OfferRevive:  {taken: effectStands, countered: reviveCountered},
	}
	abilities = map[cards.Type]func(d *Duel, o rules.Offer){
		cards.Plains:   plainsAbility,
		cards.Mountain: mountainAbility,
		cards.Forest:   forestAbility,
		cards.Island:   islandAbility,
		cards.Swamp:    swampAbility,
	}
}

func (d *Duel) playCard(seat int, a PlayCard) error {
	if err := d.expect(seat, rules.PhaseTurnStart); err != nil {
		return err
	}
	p := d.players[seat]
	hand := p.hand(a.Visible)
	if a.Index < 0 || a.Index >= len(*hand) {
		return invalid("hand index %d out of range [0,%d)", a.Index, len(*hand))
	}

	card := hand.RemoveAt(a.Index)
	p.Board[card.Type].Push(card)
	d.publish(rules.Event{Type: rules.EventCardPlayed, Player: seat, Card: card.Type,
		Text: fmt.Sprintf("%s played %s", p.Name, card.Type)})

	d.askCounter(rules.Offer{Kind: rules.OfferAbility, Ability: card.Type, Actor: seat, Source: card.ID})
	return nil
}

func (d *Duel) mountainSelect(seat int, a MountainSelect) error {
	if err := d.expect(seat, rules.PhaseMountainSelect); err != nil {
		return err
	}
	if !a.Type.Valid() {
		return invalid("unknown card type %d", int(a.Type))
	}
	q := d.opponent(seat)
	if q.BoardCount(a.Type) < 1 {
		return invalid("opponent has no %s on the board", a.Type)
	}

	card, _ := q.Board[a.Type].Pop()
	q.Discard.Push(card)
	d.publish(rules.Event{Type: rules.EventCardDestroyed, Player: 1 - seat, Card: card.Type,
		Text: fmt.Sprintf("%s destroyed %s's %s", d.players[seat].Name, q.Name, card.Type)})

	d.askCounter(rules.Offer{Kind: rules.OfferDestroy, Ability: cards.Mountain, Actor: seat,
		Source: d.selector, Target: card.ID})
	return nil
}

func (d *Duel) forestSelect(seat int, a ForestSelect) error {
	if err := d.expect(seat, rules.PhaseForestSelect); err != nil {
		return err
	}
	p := d.players[seat]
	if a.Index < 0 || a.Index >= len(p.Discard) {
		return invalid("discard index %d out of range [0,%d)", a.Index, len(p.Discard))
	}

	card := p.Discard.RemoveAt(a.Index)
	p.Visible.Push(card)
	d.publish(rules.Event{Type: rules.EventCardRevived, Player: seat, Card: card.Type,
		Text: fmt.Sprintf("%s returned %s from the discard pile", p.Name, card.Type)})

	d.askCounter(rules.Offer{Kind: rules.OfferRevive, Ability: cards.Forest, Actor: seat,
		Source: d.selector, Target: card.ID})
	return nil
}

func (d *Duel) islandSelect(seat int, a IslandSelect) error {
	if err := d.expect(seat, rules.PhaseIslandSelect); err != nil {
		return err
	}
	p := d.players[seat]
	window := min(len(p.Deck), islandWindow)
	keep := make(map[int]bool, len(a.Order))
	for _, idx := range a.Order {
		if idx < 0 || idx >= window {
			return invalid("window index %d out of range [0,%d)", idx, window)
		}
		if keep[idx] {
			return invalid("duplicate window index %d", idx)
		}
		keep[idx] = true
	}

	// viewed[i] is the i-th card from the top.
	n := len(p.Deck)
	viewed := make(cards.Pile, window)
	for i := 0; i < window; i++ {
		viewed[i] = p.Deck[n-1-i]
	}
	p.Deck = p.Deck[:n-window]
	for i := 0; i < window; i++ {
		if !keep[i] {
			p.Discard.Push(viewed[i])
		}
	}
	for i := len(a.Order) - 1; i >= 0; i-- {
		p.Deck.Push(viewed[a.Order[i]])
	}

	d.publish(rules.Event{Type: rules.EventDeckArranged, Player: seat, Amount: window - len(a.Order),
		Text: fmt.Sprintf("%s kept %d of the top %d cards and discarded %d", p.Name, len(a.Order), window, window-len(a.Order))})
	d.endTurn(seat)
	return nil
}

func (d *Duel) swampSelect(seat int, a SwampSelect) error {
	if err := d.expect(seat, rules.PhaseSwampSelect); err != nil {
		return err
	}
	q := d.opponent(seat)
	if a.Index < 0 || a.Index >= len(q.Visible) {
		return invalid("opponent hand index %d out of range [0,%d)", a.Index, len(q.Visible))
	}

	card := q.Visible.RemoveAt(a.Index)
	q.Discard.Push(card)
	d.publish(rules.Event{Type: rules.EventCardDiscarded, Player: 1 - seat, Card: card.Type,
		Text: fmt.Sprintf("%s made %s discard %s", d.players[seat].Name, q.Name, card.Type)})
	d.endTurn(seat)
	return nil
}

// resolve runs the settled base offer through the dispatch table.
func (d *Duel) resolve(o rules.Offer, countered bool) {
	r, ok := resolutions[o.Kind]
	if !ok {
		panic(fmt.Sprintf("resolve: no resolution for %s offer", o.Kind))
	}
	if countered {
		r.countered(d, o)
		return
	}
	r.taken(d, o)
}

func abilityTaken(d *Duel, o rules.Offer) {
	abilities[o.Ability](d, o)
}

// abilityCountered discards the played card; the turn still ends.
func abilityCountered(d *Duel, o rules.Offer) {
	d.discardSource(o)
	d.endTurn(o.Actor)
}

func effectStands(d *Duel, o rules.Offer) {
	d.endTurn(o.Actor)
}

// destroyCountered puts the destroyed instance back and discards the Mountain instead.
func destroyCountered(d *Duel, o rules.Offer) {
	q := d.opponent(o.Actor)
	card, ok := q.Discard.Remove(o.Target)
	if ok {
		q.Board[card.Type].Push(card)
		d.publish(rules.Event{Type: rules.EventDestroyUndone, Player: 1 - o.Actor, Card: card.Type,
			Text: fmt.Sprintf("%s's %s returned to the board", q.Name, card.Type)})
	} else {
		d.logger.Warn("destroyed card left the discard pile before undo", zap.Uint32("card_id", uint32(o.Target)))
	}
	d.discardSource(o)
	d.endTurn(o.Actor)
}

// reviveCountered sends the revived instance back to the discard and discards the Forest.
func reviveCountered(d *Duel, o rules.Offer) {
	p := d.players[o.Actor]
	card, ok := p.Visible.Remove(o.Target)
	if !ok {
		card, ok = p.Hidden.Remove(o.Target)
	}
	// Otherwise the card was spent on a counter and already sits in the discard pile.
	if ok {
		p.Discard.Push(card)
		d.publish(rules.Event{Type: rules.EventReviveUndone, Player: o.Actor, Card: card.Type,
			Text: fmt.Sprintf("%s's %s went back to the discard pile", p.Name, card.Type)})
	}
	d.discardSource(o)
	d.endTurn(o.Actor)
}

func (d *Duel) discardSource(o rules.Offer) {
	p := d.players[o.Actor]
	if !p.discardFromBoard(o.Ability, o.Source) {
		panic(fmt.Sprintf("discardSource: card %d (%s) not on %s's board", o.Source, o.Ability, p.Name))
	}
	d.publish(rules.Event{Type: rules.EventAbilityCanceled, Player: o.Actor, Card: o.Ability,
		Text: fmt.Sprintf("%s's %s was countered and discarded", p.Name, o.Ability)})
}

func plainsAbility(d *Duel, o rules.Offer) {
	d.drawInto(o.Actor)
	d.endTurn(o.Actor)
}

func mountainAbility(d *Duel, o rules.Offer) {
	if d.opponent(o.Actor).BoardEmpty() {
		d.endTurn(o.Actor)
		return
	}
	d.enterSelection(rules.PhaseMountainSelect, o)
}

func forestAbility(d *Duel, o rules.Offer) {
	if len(d.players[o.Actor].Discard) == 0 {
		d.endTurn(o.Actor)
		return
	}
	d.enterSelection(rules.PhaseForestSelect, o)
}

func islandAbility(d *Duel, o rules.Offer) {
	d.enterSelection(rules.PhaseIslandSelect, o)
}

func swampAbility(d *Duel, o rules.Offer) {
	q := d.opponent(o.Actor)
	if q.HandSize() == 0 {
		d.endTurn(o.Actor)
		return
	}
	q.mergeHand()
	d.publish(rules.Event{Type: rules.EventHandRevealed, Player: 1 - o.Actor, Amount: len(q.Visible),
		Text: fmt.Sprintf("%s revealed their hand", q.Name)})
	d.enterSelection(rules.PhaseSwampSelect, o)
}

func (d *Duel) enterSelection(phase rules.Phase, o rules.Offer) {
	d.phase = phase
	d.selector = o.Source
}
