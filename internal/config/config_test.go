package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "friends.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := load("", env(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Equal(t, GameConfig{Rows: 10, Cols: 10, Movement: 4, RequiredPlayers: 2}, cfg.Game)
	assert.Equal(t, 60*time.Second, cfg.Reaper.Interval)
	assert.Equal(t, time.Minute, cfg.Reaper.Grace)
	assert.Equal(t, 256, cfg.Broadcast.QueueSize)
	assert.Equal(t, []string{"ellios"}, cfg.Rooms)
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
storage:
  type: redis
  redis:
    url: redis://localhost:6379/0
    identity_ttl: 2h
game:
  rows: 12
reaper:
  interval: 30s
rooms: [ellios, zephiel]
`)

	cfg, err := load(path, env(nil))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, StorageRedis, cfg.Storage.Type)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Storage.Redis.URL)
	assert.Equal(t, 2*time.Hour, cfg.Storage.Redis.IdentityTTL)
	assert.Equal(t, 24*time.Hour, cfg.Storage.Redis.ConnectionTTL)
	assert.Equal(t, 12, cfg.Game.Rows)
	assert.Equal(t, 10, cfg.Game.Cols)
	assert.Equal(t, 30*time.Second, cfg.Reaper.Interval)
	assert.Equal(t, []string{"ellios", "zephiel"}, cfg.Rooms)
}

func TestConfigPathFromEnvironment(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 7000\n")

	cfg, err := load("", env(map[string]string{EnvConfigPath: path}))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := load(path, env(map[string]string{
		"SERVER_PORT":     "9100",
		"STORAGE_TYPE":    "postgres",
		"DATABASE_URL":    "postgres://friends@localhost/friends",
		"NATS_URL":        "nats://localhost:4222",
		"LOG_LEVEL":       "debug",
		"ALLOWED_ORIGINS": "https://a.example, https://b.example,",
		"REAPER_INTERVAL": "5s",
		"REAPER_GRACE":    "2m",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage.Type)
	assert.Equal(t, "postgres://friends@localhost/friends", cfg.Storage.Postgres.URL)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.NatsURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Reaper.Interval)
	assert.Equal(t, 2*time.Minute, cfg.Reaper.Grace)
}

func TestInvalidEnvironmentValues(t *testing.T) {
	_, err := load("", env(map[string]string{"SERVER_PORT": "eighty"}))
	assert.ErrorContains(t, err, "SERVER_PORT")

	_, err = load("", env(map[string]string{"REAPER_GRACE": "soon"}))
	assert.ErrorContains(t, err, "REAPER_GRACE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown storage", func(c *Config) { c.Storage.Type = "mongo" }, "invalid storage type"},
		{"redis without url", func(c *Config) { c.Storage.Type = StorageRedis }, "storage.redis.url"},
		{"postgres without url", func(c *Config) { c.Storage.Type = StoragePostgres }, "storage.postgres.url"},
		{"empty board", func(c *Config) { c.Game.Rows = 0 }, "positive dimensions"},
		{"no players", func(c *Config) { c.Game.RequiredPlayers = 0 }, "required_players"},
		{"zero grace", func(c *Config) { c.Reaper.Grace = 0 }, "reaper"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestMissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "absent.yaml"), env(nil))
	assert.ErrorContains(t, err, "read config file")
}

func TestMalformedFile(t *testing.T) {
	_, err := load(writeConfig(t, "server: [unclosed"), env(nil))
	assert.ErrorContains(t, err, "parse config")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}
