package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/landsduel/duel-server-go/internal/config"
	"go.uber.org/zap"
)

// WebSocketServer exposes a Hub over HTTP.
type WebSocketServer struct {
	http   *http.Server
	logger *zap.Logger
}

// NewWebSocketServer mounts hub at cfg.Path.
func NewWebSocketServer(cfg config.WebSocketConfig, hub *Hub, logger *zap.Logger) *WebSocketServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, hub)
	return &WebSocketServer{
		http: &http.Server{
			Addr:              cfg.Address,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Serve blocks serving lis until Shutdown.
func (s *WebSocketServer) Serve(lis net.Listener) error {
	s.logger.Info("starting WebSocket server", zap.String("address", lis.Addr().String()))
	if err := s.http.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections. Hijacked websocket connections are closed by the hub.
func (s *WebSocketServer) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
