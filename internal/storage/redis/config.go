package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// TTL settings for different entity types. Zero disables expiry.
	// Rooms and games live until the room is removed.
	ConnectionTTL time.Duration
	IdentityTTL   time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:           "redis://localhost:6379",
		PoolSize:      10,
		MinIdleConns:  2,
		ConnectionTTL: 24 * time.Hour,
		IdentityTTL:   24 * time.Hour,
	}
}
