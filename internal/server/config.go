package server

import (
	"time"

	"github.com/mcoot/seabattle-lobby/internal/transport"
)

// Config holds connection supervisor settings
type Config struct {
	Host string
	Port int

	Transport transport.Options

	// Accept errors are retried with exponential backoff between these bounds
	AcceptBackoffMin time.Duration
	AcceptBackoffMax time.Duration

	// AllowedOrigins restricts WebSocket upgrades by Origin header; empty allows all
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the supervisor
func DefaultConfig() Config {
	return Config{
		Host:             "",
		Port:             8888,
		Transport:        transport.DefaultOptions(),
		AcceptBackoffMin: 5 * time.Millisecond,
		AcceptBackoffMax: time.Second,
	}
}
