package transport

import (
	"time"

	"github.com/mcoot/seabattle-lobby/internal/model"
)

// Transport kinds reported by Conn.Transport
const (
	KindTCP       = "tcp"
	KindWebSocket = "websocket"
)

// Conn is a framed, bidirectional player connection.
// ReadFrame must only be called from the connection's read loop; WriteFrame
// and Close may be called from any goroutine.
type Conn interface {
	model.Connection

	// ReadFrame blocks until one complete frame is available.
	// It returns io.EOF when the peer shuts down cleanly.
	ReadFrame() ([]byte, error)
}

// Options controls framing limits and deadlines
type Options struct {
	// MaxFrameSize is the largest accepted inbound frame in bytes
	MaxFrameSize int
	// WriteTimeout bounds a single frame write (0 disables)
	WriteTimeout time.Duration
	// IdleTimeout bounds the wait for the next inbound frame (0 disables)
	IdleTimeout time.Duration
}

// DefaultOptions returns the default connection options
func DefaultOptions() Options {
	return Options{
		MaxFrameSize: 64 * 1024,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  0,
	}
}
