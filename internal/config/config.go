package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/landsduel/duel-server-go/internal/game/rules"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. LANDSDUEL_GAME_COUNTER_TIMEOUT.
const EnvPrefix = "LANDSDUEL"

// Config holds all server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Replay   ReplayConfig   `mapstructure:"replay"`
}

// ServerConfig configures the network listeners.
type ServerConfig struct {
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
}

// WebSocketConfig configures the player-facing websocket listener.
type WebSocketConfig struct {
	Address        string        `mapstructure:"address"`
	Path           string        `mapstructure:"path"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
}

// GRPCConfig configures the health-check listener.
type GRPCConfig struct {
	Address string `mapstructure:"address"`
}

// GameConfig tunes the duels the server runs.
type GameConfig struct {
	CounterTimeout  time.Duration `mapstructure:"counter_timeout"`
	MaxCounterDepth int           `mapstructure:"max_counter_depth"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig points at the optional results database. An empty URL disables it.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// Enabled reports whether a results database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// ReplayConfig controls where finished games are saved. An empty directory disables saving.
type ReplayConfig struct {
	Directory string `mapstructure:"directory"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.websocket.address", ":3001")
	v.SetDefault("server.websocket.path", "/ws")
	v.SetDefault("server.websocket.allowed_origins", []string{})
	v.SetDefault("server.websocket.write_timeout", 10*time.Second)
	v.SetDefault("server.websocket.ping_interval", 30*time.Second)
	v.SetDefault("server.grpc.address", ":50051")

	v.SetDefault("game.counter_timeout", 30*time.Second)
	v.SetDefault("game.max_counter_depth", rules.DefaultMaxDepth)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", time.Hour)

	v.SetDefault("replay.directory", "")
}

// Load reads the YAML file at path, applies defaults and LANDSDUEL_* environment
// overrides. A missing file is not an error; the defaults are used instead.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.WebSocket.Address == "" {
		return errors.New("server.websocket.address is required")
	}
	if !strings.HasPrefix(c.Server.WebSocket.Path, "/") {
		return fmt.Errorf("server.websocket.path must start with /, got %q", c.Server.WebSocket.Path)
	}
	if c.Game.CounterTimeout < 0 {
		return fmt.Errorf("game.counter_timeout must not be negative, got %s", c.Game.CounterTimeout)
	}
	// a lower cap would refuse counters that a legal chain of Islands can reach
	if c.Game.MaxCounterDepth < rules.DefaultMaxDepth {
		return fmt.Errorf("game.max_counter_depth must be at least %d, got %d", rules.DefaultMaxDepth, c.Game.MaxCounterDepth)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	if c.Database.Enabled() && c.Database.MaxConns < 1 {
		return fmt.Errorf("database.max_conns must be at least 1, got %d", c.Database.MaxConns)
	}
	return nil
}
