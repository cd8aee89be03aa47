package game

import "github.com/landsduel/duel-server-go/internal/game/cards"

// StartingHandSize is the number of hidden cards dealt at game creation.
const StartingHandSize = 3

// MaxBoardCount is the most copies of one type a board can hold.
const MaxBoardCount = cards.CopiesPerType

// PlayerState is one player's side of the duel.
type PlayerState struct {
	Name    string
	Deck    cards.Pile // top is the last element
	Discard cards.Pile
	Visible cards.Pile // hand cards both players know
	Hidden  cards.Pile // hand cards only the owner knows
	Board   [cards.NumTypes]cards.Pile
}

func newPlayer(name string, firstID cards.ID, s *Shuffler) *PlayerState {
	p := &PlayerState{
		Name:    name,
		Deck:    s.Shuffle(newDeck(firstID)),
		Discard: cards.Pile{},
		Visible: cards.Pile{},
		Hidden:  cards.Pile{},
	}
	for i := 0; i < StartingHandSize; i++ {
		card, _ := p.Deck.Pop()
		p.Hidden.Push(card)
	}
	return p
}

// hand returns the visible or hidden part of the hand.
func (p *PlayerState) hand(visible bool) *cards.Pile {
	if visible {
		return &p.Visible
	}
	return &p.Hidden
}

// HandSize counts both parts of the hand.
func (p *PlayerState) HandSize() int {
	return len(p.Visible) + len(p.Hidden)
}

// BoardCount returns how many cards of type t are on the board.
func (p *PlayerState) BoardCount(t cards.Type) int {
	return len(p.Board[t])
}

// BoardCounts returns the board as a type to count map.
func (p *PlayerState) BoardCounts() map[cards.Type]int {
	counts := make(map[cards.Type]int, cards.NumTypes)
	for _, t := range cards.All {
		counts[t] = len(p.Board[t])
	}
	return counts
}

// BoardEmpty reports whether no card of any type is on the board.
func (p *PlayerState) BoardEmpty() bool {
	for _, t := range cards.All {
		if len(p.Board[t]) > 0 {
			return false
		}
	}
	return true
}

// TotalCards counts every card the player owns across all zones. It is constant.
func (p *PlayerState) TotalCards() int {
	total := len(p.Deck) + len(p.Discard) + len(p.Visible) + len(p.Hidden)
	for _, t := range cards.All {
		total += len(p.Board[t])
	}
	return total
}

// hasWon applies the win condition: every type present, or five of one type.
func (p *PlayerState) hasWon() bool {
	all := true
	for _, t := range cards.All {
		n := len(p.Board[t])
		if n >= MaxBoardCount {
			return true
		}
		if n == 0 {
			all = false
		}
	}
	return all
}

// mergeHand reveals the hidden part of the hand by moving it into the visible part.
func (p *PlayerState) mergeHand() {
	p.Visible.Push(p.Hidden...)
	p.Hidden = cards.Pile{}
}

// discardFromBoard moves the board card with the given id to the discard pile.
func (p *PlayerState) discardFromBoard(t cards.Type, id cards.ID) bool {
	card, ok := p.Board[t].Remove(id)
	if !ok {
		return false
	}
	p.Discard.Push(card)
	return true
}
