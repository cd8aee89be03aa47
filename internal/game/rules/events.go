package rules

import (
	"sync"

	"github.com/landsduel/duel-server-go/internal/game/cards"
)

// EventType indicates the category of a duel event.
type EventType string

const (
	EventGameStarted     EventType = "GAME_STARTED"
	EventCardPlayed      EventType = "CARD_PLAYED"
	EventCardDrawn       EventType = "CARD_DRAWN"
	EventDeckReshuffled  EventType = "DECK_RESHUFFLED"
	EventCounterOffered  EventType = "COUNTER_OFFERED"
	EventCounterDeclined EventType = "COUNTER_DECLINED"
	EventCounterPlayed   EventType = "COUNTER_PLAYED"
	EventAbilityCanceled EventType = "ABILITY_COUNTERED"
	EventCardDestroyed   EventType = "CARD_DESTROYED"
	EventCardRevived     EventType = "CARD_REVIVED"
	EventDestroyUndone   EventType = "DESTROY_UNDONE"
	EventReviveUndone    EventType = "REVIVE_UNDONE"
	EventDeckArranged    EventType = "DECK_ARRANGED"
	EventCardDiscarded   EventType = "CARD_DISCARDED"
	EventHandRevealed    EventType = "HAND_REVEALED"
	EventTurnEnded       EventType = "TURN_ENDED"
	EventGameWon         EventType = "GAME_WON"
)

// Event is a state change reported by the engine. Player is the seat the event is about.
type Event struct {
	Type   EventType
	Player int
	Card   cards.Type
	Amount int
	Text   string
}

// Listener receives every published event.
type Listener func(Event)

// EventBus provides a synchronous publish/subscribe implementation.
type EventBus struct {
	mu         sync.RWMutex
	listeners  map[int]Listener
	nextHandle int
}

// NewEventBus returns a bus with no listeners.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners: make(map[int]Listener),
	}
}

// Subscribe adds listener and returns the handle Unsubscribe takes.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// Unsubscribe drops the listener for handle. Unknown handles are ignored.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
}

// Publish delivers the event to all registered listeners in subscription order.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	for handle := 0; handle < bus.nextHandle; handle++ {
		if listener, ok := bus.listeners[handle]; ok {
			listener(event)
		}
	}
}
