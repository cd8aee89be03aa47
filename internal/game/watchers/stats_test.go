package watchers

import (
	"testing"

	"github.com/landsduel/duel-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
)

func TestStatsWatcherCounts(t *testing.T) {
	bus := rules.NewEventBus()
	w := NewStatsWatcher(bus)

	events := []rules.Event{
		{Type: rules.EventCardPlayed, Player: 0},
		{Type: rules.EventCardPlayed, Player: 0},
		{Type: rules.EventCounterOffered, Player: 1},
		{Type: rules.EventCounterPlayed, Player: 1},
		{Type: rules.EventAbilityCanceled, Player: 0},
		{Type: rules.EventCardDrawn, Player: 1},
		{Type: rules.EventDeckReshuffled, Player: 1},
		{Type: rules.EventCardDestroyed, Player: 1},
		{Type: rules.EventCardDiscarded, Player: 1},
		{Type: rules.EventCardRevived, Player: 0},
		{Type: rules.EventCardRevived, Player: 0},
		{Type: rules.EventReviveUndone, Player: 0},
		{Type: rules.EventCardDestroyed, Player: 1},
		{Type: rules.EventDestroyUndone, Player: 1},
		{Type: rules.EventGameStarted, Player: -1},
	}
	for _, e := range events {
		bus.Publish(e)
	}

	stats := w.Stats()
	assert.Equal(t, PlayerStats{Played: 2, Countered: 1, CardsReturned: 1}, stats[0])
	assert.Equal(t, PlayerStats{CountersPlayed: 1, Drawn: 1, Reshuffles: 1, CardsLost: 2}, stats[1])
}

func TestStatsWatcherStop(t *testing.T) {
	bus := rules.NewEventBus()
	w := NewStatsWatcher(bus)
	bus.Publish(rules.Event{Type: rules.EventCardPlayed, Player: 1})

	w.Stop()
	w.Stop()
	bus.Publish(rules.Event{Type: rules.EventCardPlayed, Player: 1})

	assert.Equal(t, 1, w.Stats()[1].Played)
}
