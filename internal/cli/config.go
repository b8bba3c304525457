package cli

import (
	"net/url"
	"os"
	"strings"
	"time"
)

// Config holds CLI configuration
type Config struct {
	// ServerURL is the admin HTTP API base URL; WebSocket connections use its /ws path
	ServerURL string
	// LobbyAddr is the host:port of the TCP lobby listener
	LobbyAddr string
	// WebSocket selects the WebSocket transport for lobby commands
	WebSocket bool
	// Timeout bounds how long a lobby command waits for its reply
	Timeout time.Duration
	Output  string
	Verbose bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("SEACTL_SERVER", "http://localhost:8080"),
		LobbyAddr: getEnvOrDefault("SEACTL_LOBBY", "localhost:8888"),
		Timeout:   10 * time.Second,
		Output:    "text",
		Verbose:   false,
	}
}

// WebSocketURL derives the lobby WebSocket URL from ServerURL
func (c *Config) WebSocketURL() (string, error) {
	u, err := url.Parse(strings.TrimSuffix(c.ServerURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	return u.String(), nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
