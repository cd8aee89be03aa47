package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/landsduel/duel-server-go/internal/config"
	"github.com/landsduel/duel-server-go/internal/game"
	"github.com/landsduel/duel-server-go/internal/lobby"
	"github.com/landsduel/duel-server-go/internal/repository"
	"github.com/landsduel/duel-server-go/internal/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting lands duel server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Results database is optional
	var results server.ResultStore
	if cfg.Database.Enabled() {
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		stats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)

		repo := repository.NewResultRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to prepare results table", zap.Error(err))
		}
		results = repo
	} else {
		logger.Warn("database url not configured; results are only logged")
	}

	if cfg.Replay.Directory != "" {
		if err := os.MkdirAll(cfg.Replay.Directory, 0o755); err != nil {
			logger.Fatal("failed to create replay directory", zap.Error(err))
		}
	}

	gameMgr := game.NewManager(game.ManagerConfig{
		CounterTimeout:  cfg.Game.CounterTimeout,
		MaxCounterDepth: cfg.Game.MaxCounterDepth,
	}, logger)
	logger.Info("game manager initialized",
		zap.Duration("counter_timeout", cfg.Game.CounterTimeout),
		zap.Int("max_counter_depth", cfg.Game.MaxCounterDepth),
	)

	lob := lobby.New(logger)

	hub := server.NewHub(server.HubConfig{
		WriteTimeout:   cfg.Server.WebSocket.WriteTimeout,
		PingInterval:   cfg.Server.WebSocket.PingInterval,
		AllowedOrigins: cfg.Server.WebSocket.AllowedOrigins,
		ReplayDir:      cfg.Replay.Directory,
	}, gameMgr, lob, results, logger)
	go hub.Run(ctx)

	wsServer := server.NewWebSocketServer(cfg.Server.WebSocket, hub, logger)
	wsLis, err := net.Listen("tcp", cfg.Server.WebSocket.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("address", cfg.Server.WebSocket.Address), zap.Error(err))
	}

	health := server.NewHealthServer(logger)
	grpcLis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("address", cfg.Server.GRPC.Address), zap.Error(err))
	}

	// Start gRPC health server
	go func() {
		logger.Info("starting gRPC health server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := health.Serve(grpcLis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	// Start WebSocket server
	go func() {
		if wsErr := wsServer.Serve(wsLis); wsErr != nil {
			logger.Error("WebSocket server error", zap.Error(wsErr))
			health.SetServing(false)
		}
	}()
	health.SetServing(true)

	logger.Info("lands duel server initialized",
		zap.String("version", version),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.String("websocket_path", cfg.Server.WebSocket.Path),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	health.SetServing(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("websocket shutdown incomplete", zap.Error(err))
	}

	// Abort running games so their results and replays are written
	gameMgr.Shutdown()
	cancel()

	health.Stop()

	logger.Info("lands duel server stopped")
}

// initLogger builds the zap logger from configuration. Unknown levels fall back to info.
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil || level > zapcore.ErrorLevel {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
