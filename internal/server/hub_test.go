package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/landsduel/duel-server-go/internal/game"
	"github.com/landsduel/duel-server-go/internal/lobby"
	"github.com/landsduel/duel-server-go/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeStore struct {
	mu      sync.Mutex
	records []repository.ResultRecord
}

func (f *fakeStore) Save(_ context.Context, rec repository.ResultRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) saved() []repository.ResultRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repository.ResultRecord(nil), f.records...)
}

type testEnv struct {
	hub     *Hub
	lobby   *lobby.Lobby
	manager *game.Manager
	store   *fakeStore
	url     string
	replays string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	manager := game.NewManager(game.ManagerConfig{Seed: func() uint64 { return 5 }}, logger)
	lob := lobby.New(logger)
	store := &fakeStore{}
	replays := t.TempDir()
	hub := NewHub(HubConfig{WriteTimeout: time.Second, ReplayDir: replays}, manager, lob, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	return &testEnv{
		hub:     hub,
		lobby:   lob,
		manager: manager,
		store:   store,
		url:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		replays: replays,
	}
}

type wsConn struct {
	t    *testing.T
	conn *websocket.Conn
}

func (e *testEnv) dial(t *testing.T) *wsConn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &wsConn{t: t, conn: conn}
}

func (c *wsConn) send(msgType string, data any) {
	c.t.Helper()
	msg := map[string]any{"type": msgType}
	if data != nil {
		msg["data"] = data
	}
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

// expect reads frames until one of msgType arrives and decodes its data into out.
func (c *wsConn) expect(msgType string, out any) WSMessage {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg WSMessage
		require.NoError(c.t, c.conn.ReadJSON(&msg), "waiting for %q", msgType)
		if msg.Type != msgType {
			continue
		}
		if out != nil {
			require.NoError(c.t, json.Unmarshal(msg.Data, out))
		}
		return msg
	}
}

// pair joins two fresh connections into gameID and returns them ordered by seat.
func (e *testEnv) pair(t *testing.T, gameID string) [2]*wsConn {
	t.Helper()
	alice := e.dial(t)
	alice.send(MsgJoinGame, joinGameData{ID: gameID, Name: "Alice"})
	alice.expect(MsgWaiting, nil)

	bob := e.dial(t)
	bob.send(MsgJoinGame, joinGameData{ID: gameID, Name: "Bob"})
	return [2]*wsConn{alice, bob}
}

func TestHubPairsPlayers(t *testing.T) {
	env := newTestEnv(t)
	players := env.pair(t, "g1")

	names := [2]string{"Alice", "Bob"}
	myTurns := 0
	for seat, p := range players {
		var started gameStartedData
		msg := p.expect(MsgGameStarted, &started)
		assert.Equal(t, "g1", msg.GameID)
		assert.Equal(t, seat, started.Seat)
		assert.Equal(t, names[1-seat], started.Opponent)

		var view game.View
		p.expect(MsgBoardState, &view)
		assert.Equal(t, "g1", view.GameID)
		assert.Equal(t, names[seat], view.Me.Name)
		if view.MyTurn {
			myTurns++
		}

		var line game.LogLine
		p.expect(MsgLog, &line)
		assert.Contains(t, line.Text, "goes first")
	}
	assert.Equal(t, 1, myTurns)
	assert.Equal(t, 1, env.manager.ActiveGames())

	carol := env.dial(t)
	carol.send(MsgJoinGame, joinGameData{ID: "g1", Name: "Carol"})
	msg := carol.expect(MsgInvalidGame, nil)
	assert.Equal(t, "g1", msg.GameID)
}

func TestHubDefaultNamesAndGeneratedID(t *testing.T) {
	env := newTestEnv(t)
	first := env.dial(t)
	first.send(MsgJoinGame, nil)
	msg := first.expect(MsgWaiting, nil)
	require.NotEmpty(t, msg.GameID)

	second := env.dial(t)
	second.send(MsgJoinGame, joinGameData{ID: msg.GameID})

	var started gameStartedData
	second.expect(MsgGameStarted, &started)
	assert.Equal(t, 1, started.Seat)
	assert.Equal(t, "Player 1", started.Opponent)
}

func TestHubRejectsActions(t *testing.T) {
	env := newTestEnv(t)

	loner := env.dial(t)
	loner.send(string(game.ActionEndTurn), nil)
	var rej rejectedData
	loner.expect(MsgActionRejected, &rej)
	assert.Equal(t, "no_game", rej.Reason)

	players := env.pair(t, "g1")
	var waiting *wsConn
	for _, p := range players {
		var view game.View
		p.expect(MsgBoardState, &view)
		if !view.MyTurn {
			waiting = p
		}
	}
	require.NotNil(t, waiting)

	waiting.send(string(game.ActionEndTurn), nil)
	waiting.expect(MsgActionRejected, &rej)
	assert.Equal(t, string(game.ActionEndTurn), rej.Action)
	assert.Equal(t, string(game.RejectNotYourTurn), rej.Reason)

	waiting.send(string(game.ActionPlayCard), map[string]any{"index": "zero"})
	waiting.expect(MsgActionRejected, &rej)
	assert.Equal(t, string(game.RejectInvalidPayload), rej.Reason)

	waiting.send("shuffle deck", nil)
	var e errorData
	waiting.expect(MsgError, &e)
	assert.Contains(t, e.Message, "shuffle deck")
}

func TestHubBroadcastsAcceptedAction(t *testing.T) {
	env := newTestEnv(t)
	players := env.pair(t, "g1")

	var current *wsConn
	for _, p := range players {
		var view game.View
		p.expect(MsgBoardState, &view)
		if view.MyTurn {
			current = p
		}
	}
	require.NotNil(t, current)

	current.send(string(game.ActionEndTurn), nil)
	for _, p := range players {
		var view game.View
		p.expect(MsgBoardState, &view)
		assert.Equal(t, p != current, view.MyTurn)
		assert.Equal(t, 2, view.Turn)
	}
}

func TestHubActionRightAfterGameStarted(t *testing.T) {
	env := newTestEnv(t)
	players := env.pair(t, "g1")

	alice := players[0]
	alice.expect(MsgGameStarted, nil)
	alice.send(string(game.ActionEndTurn), nil)

	var opening game.View
	alice.expect(MsgBoardState, &opening)
	assert.Equal(t, 1, opening.Turn, "the opening board arrives before any action is applied")
	if opening.MyTurn {
		var view game.View
		alice.expect(MsgBoardState, &view)
		assert.Equal(t, 2, view.Turn)
		return
	}
	var rej rejectedData
	alice.expect(MsgActionRejected, &rej)
	assert.Equal(t, string(game.RejectNotYourTurn), rej.Reason)
}

func TestHubDisconnectAbortsGame(t *testing.T) {
	env := newTestEnv(t)
	players := env.pair(t, "g1")
	players[1].expect(MsgBoardState, nil)

	require.NoError(t, players[0].conn.Close())

	var over gameOverData
	players[1].expect(MsgGameOver, &over)
	assert.True(t, over.Aborted)
	assert.Equal(t, -1, over.Winner)
	assert.False(t, over.YouWon)

	require.Eventually(t, func() bool { return len(env.store.saved()) == 1 }, 2*time.Second, 10*time.Millisecond)
	rec := env.store.saved()[0]
	assert.Equal(t, "g1", rec.GameID)
	assert.True(t, rec.Aborted())
	assert.Equal(t, "Alice", rec.Player0)
	assert.Equal(t, "Bob", rec.Player1)
	assert.NotEmpty(t, rec.Checksum)
	assert.Equal(t, filepath.Join(env.replays, "g1.replay"), rec.ReplayPath)
	_, err := os.Stat(rec.ReplayPath)
	assert.NoError(t, err)

	assert.Zero(t, env.manager.ActiveGames())
	waiting, started := env.lobby.Counts()
	assert.Zero(t, waiting)
	assert.Zero(t, started)

	// the id is free again
	again := env.dial(t)
	again.send(MsgJoinGame, joinGameData{ID: "g1"})
	again.expect(MsgWaiting, nil)
}

func TestHubWaitingDisconnectFreesSlot(t *testing.T) {
	env := newTestEnv(t)
	alice := env.dial(t)
	alice.send(MsgJoinGame, joinGameData{ID: "g2", Name: "Alice"})
	alice.expect(MsgWaiting, nil)
	require.NoError(t, alice.conn.Close())

	require.Eventually(t, func() bool {
		waiting, _ := env.lobby.Counts()
		return waiting == 0
	}, 2*time.Second, 10*time.Millisecond)

	bob := env.dial(t)
	bob.send(MsgJoinGame, joinGameData{ID: "g2", Name: "Bob"})
	bob.expect(MsgWaiting, nil)
	assert.Empty(t, env.store.saved())
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no list allows all", nil, "http://evil.example", true},
		{"listed origin", []string{"http://localhost:3000"}, "http://localhost:3000", true},
		{"unlisted origin", []string{"http://localhost:3000"}, "http://evil.example", false},
		{"wildcard", []string{"*"}, "http://anything.example", true},
		{"no origin header", []string{"http://localhost:3000"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Hub{cfg: HubConfig{AllowedOrigins: tt.allowed}}
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, h.checkOrigin(r))
		})
	}
}
