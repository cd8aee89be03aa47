package game

import (
	"fmt"
	"strings"

	"github.com/landsduel/duel-server-go/internal/game/cards"
	"github.com/landsduel/duel-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// islandWindow is how many top-of-deck cards an Island lets its player arrange.
const islandWindow = 4

// DuelConfig describes how to set up a duel.
type DuelConfig struct {
	ID              string
	Names           [2]string
	Seed            uint64
	MaxCounterDepth int
	// OnGameOver is invoked exactly once, when the duel reaches GameOver.
	OnGameOver func(winner int)
}

// Duel is the turn engine of a single game. It is not safe for concurrent use;
// the session owning it serializes every call.
type Duel struct {
	id       string
	seed     uint64
	players  [2]*PlayerState
	first    int
	current  int
	phase    rules.Phase
	turn     int
	winner   int
	offers   *rules.OfferStack
	selector cards.ID // card whose target selection is pending
	shuffler *Shuffler
	events   *rules.EventBus
	logger   *zap.Logger

	onGameOver func(winner int)
	finished   bool
}

// NewDuel deals both players in and picks the starting player at random.
func NewDuel(cfg DuelConfig, logger *zap.Logger) *Duel {
	if logger == nil {
		logger = zap.NewNop()
	}
	names := cfg.Names
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
		if names[i] == "" {
			names[i] = fmt.Sprintf("Player %d", i+1)
		}
	}

	shuffler := NewShuffler(cfg.Seed)
	d := &Duel{
		id:         cfg.ID,
		seed:       cfg.Seed,
		phase:      rules.PhaseTurnStart,
		turn:       1,
		winner:     -1,
		offers:     rules.NewOfferStack(cfg.MaxCounterDepth),
		shuffler:   shuffler,
		events:     rules.NewEventBus(),
		logger:     logger.With(zap.String("game_id", cfg.ID)),
		onGameOver: cfg.OnGameOver,
	}
	d.players[0] = newPlayer(names[0], 1, shuffler)
	d.players[1] = newPlayer(names[1], 1+cards.DeckSize, shuffler)
	d.first = shuffler.Intn(2)
	d.current = d.first
	return d
}

// ID returns the game identifier.
func (d *Duel) ID() string { return d.id }

// Seed returns the RNG seed the duel was created with.
func (d *Duel) Seed() uint64 { return d.seed }

// Phase returns the active phase.
func (d *Duel) Phase() rules.Phase { return d.phase }

// CurrentPlayer returns the seat whose turn it is.
func (d *Duel) CurrentPlayer() int { return d.current }

// FirstPlayer returns the seat that took the first turn.
func (d *Duel) FirstPlayer() int { return d.first }

// Turn returns the 1-based turn number.
func (d *Duel) Turn() int { return d.turn }

// Player returns the state of the given seat.
func (d *Duel) Player(seat int) *PlayerState { return d.players[seat] }

// Events returns the bus the duel publishes its log events on.
func (d *Duel) Events() *rules.EventBus { return d.events }

// Winner returns the winning seat once the duel is over.
func (d *Duel) Winner() (int, bool) {
	return d.winner, d.winner >= 0
}

// PendingOffer returns the live counter offer while in CounterSelect.
func (d *Duel) PendingOffer() (rules.Offer, bool) {
	if d.phase != rules.PhaseCounterSelect {
		return rules.Offer{}, false
	}
	return d.offers.Peek()
}

// Apply is the single entry point for player actions. A rejected action returns a
// *RejectionError and leaves the duel untouched.
func (d *Duel) Apply(seat int, action Action) error {
	err := d.apply(seat, action)
	if err != nil {
		d.logger.Debug("action rejected",
			zap.Int("seat", seat),
			zap.String("phase", d.phase.String()),
			zap.Error(err),
		)
	}
	return err
}

func (d *Duel) apply(seat int, action Action) error {
	if seat != 0 && seat != 1 {
		return invalid("seat %d out of range", seat)
	}
	if action == nil {
		return invalid("missing action")
	}
	if d.phase == rules.PhaseGameOver {
		return reject(RejectGameOver, "the game has ended")
	}

	switch a := action.(type) {
	case PlayCard:
		return d.playCard(seat, a)
	case MountainSelect:
		return d.mountainSelect(seat, a)
	case ForestSelect:
		return d.forestSelect(seat, a)
	case IslandSelect:
		return d.islandSelect(seat, a)
	case SwampSelect:
		return d.swampSelect(seat, a)
	case CounterSelect:
		return d.counterSelect(seat, a)
	case EndTurn:
		return d.requestEndTurn(seat)
	}
	return invalid("unsupported action %T", action)
}

// expect checks that seat is the current player and the duel is in phase.
func (d *Duel) expect(seat int, phase rules.Phase) error {
	if seat != d.current {
		return reject(RejectNotYourTurn, "seat %d acted on seat %d's turn", seat, d.current)
	}
	if d.phase != phase {
		return reject(RejectWrongPhase, "expected %s, duel is in %s", phase, d.phase)
	}
	return nil
}

func (d *Duel) requestEndTurn(seat int) error {
	if seat != d.current {
		return reject(RejectNotYourTurn, "seat %d cannot end seat %d's turn", seat, d.current)
	}
	if d.phase != rules.PhaseTurnStart && !d.phase.IsSelection() {
		return reject(RejectWrongPhase, "cannot end the turn during %s", d.phase)
	}
	d.endTurn(seat)
	return nil
}

// endTurn checks the acting player's win condition and either finishes the duel
// or hands the turn over with a draw for the next player.
func (d *Duel) endTurn(seat int) {
	p := d.players[seat]
	d.selector = 0

	if p.hasWon() {
		d.phase = rules.PhaseGameOver
		d.winner = seat
		d.publish(rules.Event{Type: rules.EventGameWon, Player: seat, Text: fmt.Sprintf("%s wins!", p.Name)})
		d.logger.Info("duel finished",
			zap.Int("winner", seat),
			zap.String("winner_name", p.Name),
			zap.Int("turns", d.turn),
		)
		if !d.finished {
			d.finished = true
			if d.onGameOver != nil {
				d.onGameOver(seat)
			}
		}
		return
	}

	d.publish(rules.Event{Type: rules.EventTurnEnded, Player: seat, Text: fmt.Sprintf("%s ended their turn", p.Name)})
	d.phase = rules.PhaseTurnStart
	d.current = 1 - seat
	d.turn++
	d.drawInto(d.current)
}

// drawInto draws one card into the seat's hidden hand.
func (d *Duel) drawInto(seat int) {
	p := d.players[seat]
	card, reshuffled, err := draw(p, d.shuffler)
	if err != nil {
		d.logger.Warn("draw skipped", zap.Int("seat", seat), zap.Int("hand", p.HandSize()), zap.Error(err))
		return
	}
	if reshuffled {
		d.publish(rules.Event{Type: rules.EventDeckReshuffled, Player: seat, Amount: len(p.Deck) + 1,
			Text: fmt.Sprintf("%s shuffled their discard pile into a new deck", p.Name)})
	}
	p.Hidden.Push(card)
	d.publish(rules.Event{Type: rules.EventCardDrawn, Player: seat, Card: card.Type,
		Text: fmt.Sprintf("%s drew a card", p.Name)})
}

func (d *Duel) publish(e rules.Event) {
	d.events.Publish(e)
}

func (d *Duel) opponent(seat int) *PlayerState {
	return d.players[1-seat]
}
