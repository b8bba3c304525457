package nats

import "time"

// Config holds NATS connection and JetStream retention settings
type Config struct {
	// URL is the NATS server URL (e.g., nats://localhost:4222)
	URL string

	// Stream is created or updated on connect and captures
	// every subject under SubjectPrefix
	Stream        string
	SubjectPrefix string

	// Retention limits; zero means unlimited
	MaxEvents int64
	MaxAge    time.Duration

	// MemoryStorage keeps the stream in server memory instead of on disk
	MemoryStorage bool

	ConnectTimeout time.Duration
}

// DefaultConfig returns sensible defaults for the NATS event sink
func DefaultConfig() Config {
	return Config{
		URL:            "nats://localhost:4222",
		Stream:         "SEABATTLE_EVENTS",
		SubjectPrefix:  "seabattle.events",
		MaxEvents:      1000,
		MaxAge:         24 * time.Hour,
		ConnectTimeout: 5 * time.Second,
	}
}
