// Package lobby pairs connections into two-player games by game id.
package lobby

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status is the outcome of a join request.
type Status int

const (
	// StatusWaiting means the joiner holds the first seat and waits for an opponent.
	StatusWaiting Status = iota
	// StatusPaired means the joiner took the second seat and the game can start.
	StatusPaired
	// StatusInvalid means the game id belongs to a game that already started.
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusPaired:
		return "paired"
	case StatusInvalid:
		return "invalid"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ErrAlreadyJoined is returned when a connection joins while it already holds a seat.
var ErrAlreadyJoined = errors.New("connection already joined a game")

// Entrant is one player waiting for or seated in a game.
type Entrant struct {
	ConnID string
	Name   string
}

// Ticket describes where a join request left the joiner.
type Ticket struct {
	GameID string
	Status Status
	Seat   int
	// Players is filled once paired; seat 0 is the player who joined first.
	Players [2]Entrant
}

// Lobby tracks waiting slots and started games.
type Lobby struct {
	mu      sync.Mutex
	waiting map[string]Entrant   // game id -> first joiner
	started map[string][2]string // game id -> seated connection ids
	conns   map[string]string    // connection id -> game id
	logger  *zap.Logger
}

// New creates an empty lobby.
func New(logger *zap.Logger) *Lobby {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lobby{
		waiting: make(map[string]Entrant),
		started: make(map[string][2]string),
		conns:   make(map[string]string),
		logger:  logger,
	}
}

// Join seats connID in gameID. An empty gameID gets a fresh uuid, so the joiner
// always waits and can share the id with an opponent.
func (l *Lobby) Join(connID, gameID, name string) (Ticket, error) {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		gameID = uuid.NewString()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.conns[connID]; ok {
		return Ticket{}, fmt.Errorf("%w: %s", ErrAlreadyJoined, current)
	}

	if _, ok := l.started[gameID]; ok {
		l.logger.Debug("join refused, game already started", zap.String("game_id", gameID), zap.String("conn_id", connID))
		return Ticket{GameID: gameID, Status: StatusInvalid}, nil
	}

	first, ok := l.waiting[gameID]
	if !ok {
		l.waiting[gameID] = Entrant{ConnID: connID, Name: name}
		l.conns[connID] = gameID
		l.logger.Info("waiting for other player", zap.String("game_id", gameID), zap.String("conn_id", connID))
		return Ticket{GameID: gameID, Status: StatusWaiting, Seat: 0}, nil
	}

	delete(l.waiting, gameID)
	l.started[gameID] = [2]string{first.ConnID, connID}
	l.conns[connID] = gameID
	l.logger.Info("players paired", zap.String("game_id", gameID),
		zap.String("seat_0", first.ConnID), zap.String("seat_1", connID))

	return Ticket{
		GameID:  gameID,
		Status:  StatusPaired,
		Seat:    1,
		Players: [2]Entrant{first, {ConnID: connID, Name: name}},
	}, nil
}

// Leave removes connID from the lobby. A waiting slot is freed; for a started game the
// game id is returned so the caller can end it.
func (l *Lobby) Leave(connID string) (gameID string, wasStarted bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	gameID, ok := l.conns[connID]
	if !ok {
		return "", false
	}
	delete(l.conns, connID)

	if w, ok := l.waiting[gameID]; ok && w.ConnID == connID {
		delete(l.waiting, gameID)
		l.logger.Info("waiting slot freed", zap.String("game_id", gameID), zap.String("conn_id", connID))
		return gameID, false
	}
	_, wasStarted = l.started[gameID]
	return gameID, wasStarted
}

// Finish forgets a started game, releasing its id and both connections.
func (l *Lobby) Finish(gameID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seats, ok := l.started[gameID]
	if !ok {
		return
	}
	delete(l.started, gameID)
	for _, connID := range seats {
		if l.conns[connID] == gameID {
			delete(l.conns, connID)
		}
	}
}

// Counts returns the number of waiting slots and started games.
func (l *Lobby) Counts() (waiting, started int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiting), len(l.started)
}
