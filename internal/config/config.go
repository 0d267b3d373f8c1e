// Package config loads server configuration from YAML with environment
// overrides
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// EnvConfigPath names the variable holding the config file path
const EnvConfigPath = "FRIENDS_CONFIG"

// Config is the complete server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Game      GameConfig      `yaml:"game"`
	Reaper    ReaperConfig    `yaml:"reaper"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Events    EventsConfig    `yaml:"events"`
	Log       LogConfig       `yaml:"log"`
	Rooms     []string        `yaml:"rooms"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type     string         `yaml:"type"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL           string        `yaml:"url"`
	PoolSize      int           `yaml:"pool_size"`
	ConnectionTTL time.Duration `yaml:"connection_ttl"`
	IdentityTTL   time.Duration `yaml:"identity_ttl"`
}

// PostgresConfig holds PostgreSQL settings
type PostgresConfig struct {
	URL         string `yaml:"url"`
	MaxConns    int32  `yaml:"max_conns"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// GameConfig shapes new games
type GameConfig struct {
	Rows            int `yaml:"rows"`
	Cols            int `yaml:"cols"`
	Movement        int `yaml:"movement"`
	RequiredPlayers int `yaml:"required_players"`
}

// ReaperConfig holds staleness sweep timing
type ReaperConfig struct {
	Interval time.Duration `yaml:"interval"`
	Grace    time.Duration `yaml:"grace"`
}

// BroadcastConfig sizes outbound queues
type BroadcastConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// WebSocketConfig holds transport limits
type WebSocketConfig struct {
	ReadLimit int64   `yaml:"read_limit"`
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// EventsConfig selects domain event sinks
type EventsConfig struct {
	NatsURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Log           bool   `yaml:"log"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Type: StorageMemory,
			Redis: RedisConfig{
				PoolSize:      10,
				ConnectionTTL: 24 * time.Hour,
				IdentityTTL:   24 * time.Hour,
			},
			Postgres: PostgresConfig{
				MaxConns:    10,
				AutoMigrate: true,
			},
		},
		Game: GameConfig{
			Rows:            10,
			Cols:            10,
			Movement:        4,
			RequiredPlayers: 2,
		},
		Reaper: ReaperConfig{
			Interval: 60 * time.Second,
			Grace:    time.Minute,
		},
		Broadcast: BroadcastConfig{QueueSize: 256},
		WebSocket: WebSocketConfig{
			ReadLimit: 8192,
			RateLimit: 20,
			RateBurst: 40,
		},
		Events: EventsConfig{
			SubjectPrefix: "friends.events",
			Log:           true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Rooms: []string{"ellios"},
	}
}

// Load reads the YAML file at path (if any) over the defaults, then applies
// environment overrides and validates the result
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := getenv("STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.Storage.Redis.URL = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.Storage.Postgres.URL = v
	}
	if v := getenv("NATS_URL"); v != "" {
		c.Events.NatsURL = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := getenv("REAPER_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REAPER_INTERVAL: %w", err)
		}
		c.Reaper.Interval = d
	}
	if v := getenv("REAPER_GRACE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REAPER_GRACE: %w", err)
		}
		c.Reaper.Grace = d
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports configuration the server cannot start with
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.Redis.URL == "" {
			errs = append(errs, errors.New("storage.redis.url required when storage type is redis"))
		}
	case StoragePostgres:
		if c.Storage.Postgres.URL == "" {
			errs = append(errs, errors.New("storage.postgres.url required when storage type is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid storage type %q: must be memory, redis or postgres", c.Storage.Type))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port %d", c.Server.Port))
	}
	if c.Game.Rows <= 0 || c.Game.Cols <= 0 {
		errs = append(errs, errors.New("game board must have positive dimensions"))
	}
	if c.Game.RequiredPlayers <= 0 {
		errs = append(errs, errors.New("game.required_players must be positive"))
	}
	if c.Reaper.Interval <= 0 || c.Reaper.Grace <= 0 {
		errs = append(errs, errors.New("reaper interval and grace must be positive"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParseLevel converts a level name to a slog.Level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
}

// NewLogger builds the process logger
func (c LogConfig) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is NewLogger writing to w
func (c LogConfig) NewLoggerTo(w io.Writer) *slog.Logger {
	level, _ := ParseLevel(c.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
