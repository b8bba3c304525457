package model

import "time"

// PlayerID uniquely identifies a connected player
type PlayerID string

// DefaultPlayerName is the display name given to a player until they set one
const DefaultPlayerName = "Player"

// Connection is the part of a transport connection a Player record owns.
// It is only ever used for sending and closing; reading belongs to the
// connection's own read loop.
type Connection interface {
	// WriteFrame writes one complete protocol frame
	WriteFrame(frame []byte) error
	// Close closes the underlying connection; closing twice is a no-op
	Close() error
	// IsOpen reports whether the connection is still live
	IsOpen() bool
	// RemoteAddr is the peer address, for logging
	RemoteAddr() string
	// Transport names the transport kind ("tcp", "websocket")
	Transport() string
}

// Player represents a connected participant
type Player struct {
	ID          PlayerID
	Name        string
	Conn        Connection
	ConnectedAt time.Time
}

// IsConnected reports whether the player's connection is live
func (p *Player) IsConnected() bool {
	return p.Conn != nil && p.Conn.IsOpen()
}
