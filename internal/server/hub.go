package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/landsduel/duel-server-go/internal/game"
	"github.com/landsduel/duel-server-go/internal/lobby"
	"github.com/landsduel/duel-server-go/internal/repository"
	"go.uber.org/zap"
)

const (
	maxMessageSize = 8 << 10
	sendBuffer     = 64
	saveTimeout    = 5 * time.Second
)

// ResultStore persists finished games. *repository.ResultRepository satisfies it.
type ResultStore interface {
	Save(ctx context.Context, rec repository.ResultRecord) error
}

// HubConfig tunes connection handling and what happens to finished games.
type HubConfig struct {
	WriteTimeout time.Duration
	// PingInterval of zero disables keepalive pings and read deadlines.
	PingInterval   time.Duration
	AllowedOrigins []string
	// ReplayDir of "" disables replay files.
	ReplayDir string
}

// Hub connects websocket clients to the lobby and the game manager.
type Hub struct {
	cfg      HubConfig
	logger   *zap.Logger
	manager  *game.Manager
	lobby    *lobby.Lobby
	results  ResultStore
	upgrader websocket.Upgrader

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu      sync.RWMutex
	clients map[string]*Client
	seats   map[string][2]*Client
}

// NewHub creates a hub and installs its handlers on manager. results may be nil.
func NewHub(cfg HubConfig, manager *game.Manager, lob *lobby.Lobby, results ResultStore, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		cfg:        cfg,
		logger:     logger,
		manager:    manager,
		lobby:      lob,
		results:    results,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string]*Client),
		seats:      make(map[string][2]*Client),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	manager.SetNotificationHandler(h.deliver)
	manager.SetGameOverHandler(h.gameOver)
	return h
}

// Run processes registrations until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("conn_id", c.id))

		case c := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[c.id]
			delete(h.clients, c.id)
			h.mu.Unlock()
			if ok {
				c.close()
				h.leave(c)
				h.logger.Debug("client unregistered", zap.String("conn_id", c.id))
			}

		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.clients {
				delete(h.clients, id)
				c.close()
			}
			h.mu.Unlock()
			return
		}
	}
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// ServeHTTP upgrades the request and starts the client's pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &Client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) handleMessage(c *Client, msg WSMessage) {
	switch {
	case msg.Type == MsgJoinGame:
		h.handleJoin(c, msg)
	case isAction(msg.Type):
		h.handleAction(c, msg)
	default:
		c.sendMessage(MsgError, "", errorData{Message: "unknown message type: " + msg.Type})
	}
}

func (h *Hub) handleJoin(c *Client, msg WSMessage) {
	var req joinGameData
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendMessage(MsgError, "", errorData{Message: "malformed join request"})
			return
		}
	}
	if req.ID == "" {
		req.ID = msg.GameID
	}

	ticket, err := h.lobby.Join(c.id, req.ID, req.Name)
	if err != nil {
		c.sendMessage(MsgError, "", errorData{Message: err.Error()})
		return
	}

	switch ticket.Status {
	case lobby.StatusInvalid:
		c.sendMessage(MsgInvalidGame, ticket.GameID, nil)
	case lobby.StatusWaiting:
		c.sendMessage(MsgWaiting, ticket.GameID, nil)
	case lobby.StatusPaired:
		h.startGame(ticket)
	}
}

// startGame seats both clients before the manager announces the game to them.
func (h *Hub) startGame(ticket lobby.Ticket) {
	gameID := ticket.GameID
	names := [2]string{
		defaultName(ticket.Players[0].Name, 0),
		defaultName(ticket.Players[1].Name, 1),
	}

	h.mu.Lock()
	first := h.clients[ticket.Players[0].ConnID]
	second := h.clients[ticket.Players[1].ConnID]
	if first == nil || second == nil {
		h.mu.Unlock()
		h.lobby.Finish(gameID)
		for _, c := range []*Client{first, second} {
			if c != nil {
				c.sendMessage(MsgInvalidGame, gameID, nil)
			}
		}
		return
	}
	pair := [2]*Client{first, second}
	h.seats[gameID] = pair
	h.mu.Unlock()

	if err := h.manager.StartGame(gameID, names); err != nil {
		h.logger.Error("failed to start game", zap.String("game_id", gameID), zap.Error(err))
		h.unbind(gameID)
		h.lobby.Finish(gameID)
		for _, c := range pair {
			c.sendMessage(MsgError, gameID, errorData{Message: "failed to start game"})
		}
		return
	}

	// a seat may have disconnected before the game existed to abort
	h.mu.RLock()
	_, seated := h.seats[gameID]
	h.mu.RUnlock()
	if !seated {
		_ = h.manager.AbortGame(gameID)
	}
}

func (h *Hub) handleAction(c *Client, msg WSMessage) {
	gameID, seat, ok := h.binding(c)
	if !ok {
		c.sendMessage(MsgActionRejected, "", rejectedData{Action: msg.Type, Reason: "no_game", Detail: "join a game first"})
		return
	}

	action, err := game.DecodeAction(game.ActionKind(msg.Type), msg.Data)
	if err == nil {
		err = h.manager.ProcessAction(gameID, seat, action)
	}
	if err == nil {
		return
	}

	rejection := rejectedData{Action: msg.Type, Detail: err.Error()}
	var rej *game.RejectionError
	switch {
	case errors.As(err, &rej):
		rejection.Reason = string(rej.Reason)
		rejection.Detail = rej.Detail
	case errors.Is(err, game.ErrGameNotFound):
		rejection.Reason = "no_game"
	default:
		rejection.Reason = "internal"
		h.logger.Error("action failed", zap.String("game_id", gameID), zap.Int("seat", seat), zap.Error(err))
	}
	c.sendMessage(MsgActionRejected, gameID, rejection)
}

func (h *Hub) binding(c *Client) (string, int, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for gameID, pair := range h.seats {
		for seat, seated := range pair {
			if seated == c {
				return gameID, seat, true
			}
		}
	}
	return "", 0, false
}

func (h *Hub) unbind(gameID string) [2]*Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	pair := h.seats[gameID]
	delete(h.seats, gameID)
	return pair
}

// leave releases whatever the departing client held. Leaving a started game aborts it.
func (h *Hub) leave(c *Client) {
	gameID, started := h.lobby.Leave(c.id)
	if !started {
		return
	}
	h.logger.Info("player left running game", zap.String("game_id", gameID), zap.String("conn_id", c.id))
	if err := h.manager.AbortGame(gameID); errors.Is(err, game.ErrGameNotFound) {
		// never started, or already over
		h.unbind(gameID)
		h.lobby.Finish(gameID)
	}
}

// deliver is the manager's notification handler. It runs under the game's lock, so it
// only queues frames. The first update of a game is preceded by "game started".
func (h *Hub) deliver(u game.Update) {
	h.mu.RLock()
	c := h.seats[u.GameID][u.Seat]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	if u.Started {
		c.sendMessage(MsgGameStarted, u.GameID, gameStartedData{Seat: u.Seat, Opponent: u.View.Opponent.Name})
	}
	c.sendMessage(MsgBoardState, u.GameID, u.View)
	for _, line := range u.Log {
		c.sendMessage(MsgLog, u.GameID, line)
	}
}

func (h *Hub) gameOver(result game.Result) {
	pair := h.unbind(result.GameID)
	h.lobby.Finish(result.GameID)

	for seat, c := range pair {
		if c == nil {
			continue
		}
		data := gameOverData{Winner: result.Winner, Aborted: result.Aborted(), YouWon: result.Winner == seat}
		if !result.Aborted() {
			data.WinnerName = result.Players[result.Winner]
		}
		c.sendMessage(MsgGameOver, result.GameID, data)
	}

	h.persist(result)
}

func (h *Hub) persist(result game.Result) {
	rec := repository.ResultRecord{
		GameID:     result.GameID,
		Player0:    result.Players[0],
		Player1:    result.Players[1],
		Winner:     result.Winner,
		Turns:      result.Turns,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}
	if result.Replay != nil {
		rec.Actions = result.Replay.Size()
		rec.Checksum = result.Replay.Checksum
		if h.cfg.ReplayDir != "" {
			path, err := result.Replay.SaveToFile(h.cfg.ReplayDir)
			if err != nil {
				h.logger.Error("failed to save replay", zap.String("game_id", result.GameID), zap.Error(err))
			} else {
				rec.ReplayPath = path
			}
		}
	}

	h.logger.Info("game finished",
		zap.String("game_id", rec.GameID),
		zap.Int("winner", rec.Winner),
		zap.Int("turns", rec.Turns),
		zap.Int("actions", rec.Actions),
		zap.Any("stats", result.Stats),
	)

	if h.results == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := h.results.Save(ctx, rec); err != nil {
		h.logger.Error("failed to save result", zap.String("game_id", rec.GameID), zap.Error(err))
	}
}
