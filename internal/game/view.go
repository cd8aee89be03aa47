package game

import (
	"github.com/landsduel/duel-server-go/internal/game/cards"
	"github.com/landsduel/duel-server-go/internal/game/rules"
)

// View is the board state one player is entitled to see.
type View struct {
	GameID   string       `json:"gameId"`
	Phase    rules.Phase  `json:"phase"`
	Turn     int          `json:"turn"`
	MyTurn   bool         `json:"myTurn"`
	Me       SelfView     `json:"me"`
	Opponent OpponentView `json:"opponent"`
	Counter  *CounterView `json:"counter,omitempty"`
	Winner   *int         `json:"winner,omitempty"`
}

// HandView is a hand whose contents are fully known to the viewer.
type HandView struct {
	Visible []cards.Type `json:"visible"`
	Hidden  []cards.Type `json:"hidden"`
}

// SelfView is the viewer's own side.
type SelfView struct {
	Name    string             `json:"name"`
	Deck    int                `json:"deck"`
	Discard []cards.Type       `json:"discard"`
	Hand    HandView           `json:"hand"`
	Board   map[cards.Type]int `json:"board"`
	// Top is the Island window, top card first, present only while arranging it.
	// An empty deck gives an empty window, not a missing one.
	Top *[]cards.Type `json:"top,omitempty"`
}

// OpponentHandView shows the visible cards and only the size of the hidden part.
type OpponentHandView struct {
	Visible []cards.Type `json:"visible"`
	Hidden  int          `json:"hidden"`
}

// OpponentView is the other player's side.
type OpponentView struct {
	Name    string             `json:"name"`
	Deck    int                `json:"deck"`
	Discard []cards.Type       `json:"discard"`
	Hand    OpponentHandView   `json:"hand"`
	Board   map[cards.Type]int `json:"board"`
}

// CounterView describes the live counter offer.
type CounterView struct {
	IsResponder     bool       `json:"isResponder"`
	CounterCardType cards.Type `json:"counterCardType"`
	Depth           int        `json:"depth"`
}

// Project builds the view of the duel for seat.
func (d *Duel) Project(seat int) View {
	me := d.players[seat]
	them := d.players[1-seat]

	view := View{
		GameID: d.id,
		Phase:  d.phase,
		Turn:   d.turn,
		MyTurn: seat == d.current,
		Me: SelfView{
			Name:    me.Name,
			Deck:    len(me.Deck),
			Discard: me.Discard.Types(),
			Hand: HandView{
				Visible: me.Visible.Types(),
				Hidden:  me.Hidden.Types(),
			},
			Board: me.BoardCounts(),
		},
		Opponent: OpponentView{
			Name:    them.Name,
			Deck:    len(them.Deck),
			Discard: them.Discard.Types(),
			Hand: OpponentHandView{
				Visible: them.Visible.Types(),
				Hidden:  len(them.Hidden),
			},
			Board: them.BoardCounts(),
		},
	}

	if d.phase == rules.PhaseIslandSelect && seat == d.current {
		window := min(len(me.Deck), islandWindow)
		top := make([]cards.Type, 0, window)
		for i := len(me.Deck) - 1; i >= len(me.Deck)-window; i-- {
			top = append(top, me.Deck[i].Type)
		}
		view.Me.Top = &top
	}

	if offer, ok := d.PendingOffer(); ok {
		view.Counter = &CounterView{
			IsResponder:     seat == offer.Responder(),
			CounterCardType: offer.Ability,
			Depth:           d.offers.Depth(),
		}
	}

	if winner, ok := d.Winner(); ok {
		view.Winner = &winner
	}
	return view
}
