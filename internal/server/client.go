package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is one websocket connection.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// sendMessage queues a frame without blocking. A client that cannot keep up is disconnected.
func (c *Client) sendMessage(msgType, gameID string, data any) {
	frame, err := encode(msgType, gameID, data)
	if err != nil {
		c.hub.logger.Error("failed to encode message", zap.String("type", msgType), zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		c.hub.logger.Warn("client send buffer full, dropping connection", zap.String("conn_id", c.id))
		c.closed = true
		close(c.send)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if ping := c.hub.cfg.PingInterval; ping > 0 {
		pongWait := 2 * ping
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			c.sendMessage(MsgError, "", errorData{Message: "malformed message"})
			continue
		}
		c.hub.handleMessage(c, msg)
	}
}

func (c *Client) writePump() {
	var tick <-chan time.Time
	if ping := c.hub.cfg.PingInterval; ping > 0 {
		ticker := time.NewTicker(ping)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer c.conn.Close()

	for {
		select {
		case frame, ok := <-c.send:
			c.setWriteDeadline()
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-tick:
			c.setWriteDeadline()
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) setWriteDeadline() {
	if c.hub.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
	}
}
