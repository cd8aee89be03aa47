package game

import (
	"testing"

	"github.com/landsduel/duel-server-go/internal/game/cards"
	"github.com/landsduel/duel-server-go/internal/game/rules"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// layout places a player's 25 cards by type. Deck is listed top first; cards not
// mentioned anywhere go to the bottom of the deck.
type layout struct {
	deck    []cards.Type
	discard []cards.Type
	visible []cards.Type
	hidden  []cards.Type
	board   map[cards.Type]int
}

func newTestDuel(t *testing.T) *Duel {
	t.Helper()
	return NewDuel(DuelConfig{ID: "test-duel", Names: [2]string{"Alice", "Bob"}, Seed: 7}, zaptest.NewLogger(t))
}

// arrange redistributes the player's own cards (keeping their ids) into l.
func arrange(t *testing.T, p *PlayerState, l layout) {
	t.Helper()

	pool := make(map[cards.Type]cards.Pile, cards.NumTypes)
	collect := func(pile cards.Pile) {
		for _, c := range pile {
			pool[c.Type] = append(pool[c.Type], c)
		}
	}
	collect(p.Deck)
	collect(p.Discard)
	collect(p.Visible)
	collect(p.Hidden)
	for _, ty := range cards.All {
		collect(p.Board[ty])
	}

	take := func(ty cards.Type) cards.Card {
		pile := pool[ty]
		c, ok := pile.Pop()
		require.True(t, ok, "no %s left to place", ty)
		pool[ty] = pile
		return c
	}
	fill := func(types []cards.Type) cards.Pile {
		pile := cards.Pile{}
		for _, ty := range types {
			pile.Push(take(ty))
		}
		return pile
	}

	p.Discard = fill(l.discard)
	p.Visible = fill(l.visible)
	p.Hidden = fill(l.hidden)
	for _, ty := range cards.All {
		p.Board[ty] = cards.Pile{}
		for i := 0; i < l.board[ty]; i++ {
			p.Board[ty].Push(take(ty))
		}
	}

	top := fill(l.deck)
	deck := cards.Pile{}
	for _, ty := range cards.All {
		deck.Push(pool[ty]...)
		pool[ty] = nil
	}
	for i := len(top) - 1; i >= 0; i-- {
		deck.Push(top[i])
	}
	p.Deck = deck

	require.Equal(t, cards.DeckSize, p.TotalCards())
}

// startTurn hands the turn to seat in TurnStart without drawing.
func startTurn(d *Duel, seat int) {
	d.current = seat
	d.phase = rules.PhaseTurnStart
	d.offers.Reset()
}

// hiddenIndex returns the position of the first card of type ty in the hidden hand.
func hiddenIndex(t *testing.T, p *PlayerState, ty cards.Type) int {
	t.Helper()
	for i, c := range p.Hidden {
		if c.Type == ty {
			return i
		}
	}
	t.Fatalf("%s has no hidden %s", p.Name, ty)
	return -1
}

func requireConservation(t *testing.T, d *Duel) {
	t.Helper()
	for seat := 0; seat < 2; seat++ {
		p := d.Player(seat)
		require.Equal(t, cards.DeckSize, p.TotalCards(), "seat %d lost or gained cards", seat)
		for _, ty := range cards.All {
			require.LessOrEqual(t, p.BoardCount(ty), MaxBoardCount)
		}
	}
}

func types(ts ...cards.Type) []cards.Type { return ts }
