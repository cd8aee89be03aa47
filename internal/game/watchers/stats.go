// Package watchers holds observers that follow a duel through its event bus.
package watchers

import (
	"sync"

	"github.com/landsduel/duel-server-go/internal/game/rules"
)

// PlayerStats counts what happened to one seat during a duel.
type PlayerStats struct {
	Played         int `json:"played"`
	Drawn          int `json:"drawn"`
	Reshuffles     int `json:"reshuffles"`
	CountersPlayed int `json:"countersPlayed"`
	// Countered is how many of this seat's abilities were cancelled.
	Countered int `json:"countered"`
	// CardsLost counts board cards destroyed and hand cards discarded by the opponent.
	// A destruction that is countered does not count.
	CardsLost int `json:"cardsLost"`
	// CardsReturned counts revivals from the discard pile that were not countered.
	CardsReturned int `json:"cardsReturned"`
}

// StatsWatcher tallies PlayerStats for both seats.
type StatsWatcher struct {
	mu     sync.Mutex
	stats  [2]PlayerStats
	bus    *rules.EventBus
	handle int
}

// NewStatsWatcher subscribes a watcher to bus.
func NewStatsWatcher(bus *rules.EventBus) *StatsWatcher {
	w := &StatsWatcher{bus: bus}
	w.handle = bus.Subscribe(w.Watch)
	return w
}

// Watch implements rules.Listener.
func (w *StatsWatcher) Watch(event rules.Event) {
	if event.Player != 0 && event.Player != 1 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	s := &w.stats[event.Player]
	switch event.Type {
	case rules.EventCardPlayed:
		s.Played++
	case rules.EventCardDrawn:
		s.Drawn++
	case rules.EventDeckReshuffled:
		s.Reshuffles++
	case rules.EventCounterPlayed:
		s.CountersPlayed++
	case rules.EventAbilityCanceled:
		s.Countered++
	case rules.EventCardDestroyed, rules.EventCardDiscarded:
		s.CardsLost++
	case rules.EventDestroyUndone:
		s.CardsLost--
	case rules.EventCardRevived:
		s.CardsReturned++
	case rules.EventReviveUndone:
		s.CardsReturned--
	}
}

// Stats returns a copy of the tallies.
func (w *StatsWatcher) Stats() [2]PlayerStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Stop unsubscribes the watcher. Its tallies stay readable.
func (w *StatsWatcher) Stop() {
	if w.bus != nil {
		w.bus.Unsubscribe(w.handle)
		w.bus = nil
	}
}
