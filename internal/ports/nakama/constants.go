package nakama

import "github.com/landsduel/duel-server-go/internal/game"

const (
	// RpcFindDuel is the Nakama RPC id clients call to find or create a duel with an open seat.
	RpcFindDuel = "find_duel"

	// MatchNameDuel is the authoritative match handler name registered with Nakama.
	MatchNameDuel = "lands_duel"

	// MatchLabelKeyOpenSeats is the label key holding the number of free seats.
	MatchLabelKeyOpenSeats = "open"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpPlayCard       int64 = 1
	OpMountainSelect int64 = 2
	OpForestSelect   int64 = 3
	OpIslandSelect   int64 = 4
	OpSwampSelect    int64 = 5
	OpCounterSelect  int64 = 6
	OpEndTurn        int64 = 7

	// Server -> Client events, all sent privately
	OpWaiting        int64 = 101
	OpGameStarted    int64 = 102
	OpBoardState     int64 = 103
	OpLog            int64 = 104
	OpActionRejected int64 = 105
	OpGameOver       int64 = 106
)

var actionOpCodes = map[int64]game.ActionKind{
	OpPlayCard:       game.ActionPlayCard,
	OpMountainSelect: game.ActionMountainSelect,
	OpForestSelect:   game.ActionForestSelect,
	OpIslandSelect:   game.ActionIslandSelect,
	OpSwampSelect:    game.ActionSwampSelect,
	OpCounterSelect:  game.ActionCounterSelect,
	OpEndTurn:        game.ActionEndTurn,
}

const (
	defaultTickRate       = 5
	defaultCounterTimeout = 30 // seconds
)
