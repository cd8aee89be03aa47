package game

import (
	"errors"
	"fmt"

	"github.com/landsduel/duel-server-go/internal/game/cards"
	"golang.org/x/exp/rand"
)

// Shuffler permutes piles with a seedable source so whole games can be replayed.
type Shuffler struct {
	rng *rand.Rand
}

// NewShuffler creates a shuffler seeded with seed.
func NewShuffler(seed uint64) *Shuffler {
	return &Shuffler{rng: rand.New(rand.NewSource(seed))}
}

// Shuffle permutes the pile in place with Fisher-Yates and returns it.
func (s *Shuffler) Shuffle(p cards.Pile) cards.Pile {
	for i := len(p) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// Intn returns a uniform value in [0, n).
func (s *Shuffler) Intn(n int) int {
	return s.rng.Intn(n)
}

// newDeck builds the 25 cards a player owns. IDs start at firstID and are handed out
// in catalog order, so the caller must shuffle before anything is dealt.
func newDeck(firstID cards.ID) cards.Pile {
	deck := make(cards.Pile, 0, cards.DeckSize)
	id := firstID
	for _, t := range cards.All {
		for i := 0; i < cards.CopiesPerType; i++ {
			deck = append(deck, cards.Card{ID: id, Type: t})
			id++
		}
	}
	return deck
}

// errNothingToDraw is returned when both the deck and the discard pile are empty.
// Every card is then in hand or on the board, which only happens when turns are passed
// without playing.
var errNothingToDraw = errors.New("nothing to draw")

// draw removes the top card of the player's deck, first recycling the discard
// pile into a fresh deck when the deck is empty. It reports whether a reshuffle happened.
func draw(p *PlayerState, s *Shuffler) (card cards.Card, reshuffled bool, err error) {
	if len(p.Deck) == 0 {
		if len(p.Discard) == 0 {
			return cards.Card{}, false, fmt.Errorf("player %q: %w", p.Name, errNothingToDraw)
		}
		p.Deck = s.Shuffle(p.Discard)
		p.Discard = cards.Pile{}
		reshuffled = true
	}
	card, _ = p.Deck.Pop()
	return card, reshuffled, nil
}
