package redis

import "time"

// Config holds Redis connection and event retention settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// Channel receives every event via PUBLISH
	Channel string

	// ListKey holds the most recent events, newest first
	ListKey   string
	MaxRecent int64
	// TTL is refreshed on ListKey after each publish; zero keeps it forever
	TTL time.Duration
}

// DefaultConfig returns sensible defaults for the Redis event sink
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		Channel:      keyPrefix + ":events",
		ListKey:      keyPrefix + ":events:recent",
		MaxRecent:    1000,
		TTL:          24 * time.Hour,
	}
}

const keyPrefix = "seabattle"
