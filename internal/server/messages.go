package server

import (
	"encoding/json"
	"fmt"

	"github.com/landsduel/duel-server-go/internal/game"
)

// Message types exchanged with browser clients. Action messages reuse the game.ActionKind
// names ("play card", "end turn", ...).
const (
	MsgJoinGame       = "join game"
	MsgWaiting        = "waiting for other player"
	MsgInvalidGame    = "invalid game"
	MsgGameStarted    = "game started"
	MsgBoardState     = "board state"
	MsgLog            = "log"
	MsgActionRejected = "action rejected"
	MsgGameOver       = "game over"
	MsgError          = "error"
)

// WSMessage is the envelope of every websocket frame.
type WSMessage struct {
	Type   string          `json:"type"`
	GameID string          `json:"gameId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type joinGameData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type gameStartedData struct {
	Seat     int    `json:"seat"`
	Opponent string `json:"opponent"`
}

type rejectedData struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

type gameOverData struct {
	Winner     int    `json:"winner"`
	WinnerName string `json:"winnerName,omitempty"`
	YouWon     bool   `json:"youWon"`
	Aborted    bool   `json:"aborted"`
}

type errorData struct {
	Message string `json:"message"`
}

func encode(msgType, gameID string, data any) ([]byte, error) {
	msg := WSMessage{Type: msgType, GameID: gameID}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", msgType, err)
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}

func isAction(msgType string) bool {
	switch game.ActionKind(msgType) {
	case game.ActionPlayCard, game.ActionMountainSelect, game.ActionForestSelect,
		game.ActionIslandSelect, game.ActionSwampSelect, game.ActionCounterSelect,
		game.ActionEndTurn:
		return true
	}
	return false
}

func defaultName(name string, seat int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("Player %d", seat+1)
}
