package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/mcoot/seabattle-lobby/internal/model"
	"github.com/mcoot/seabattle-lobby/internal/transport"
)

// ServerError is an error reply from the lobby server
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// Frame is one decoded message from the lobby server
type Frame struct {
	Action string
	Raw    json.RawMessage
}

// Decode unmarshals the frame into v
func (f Frame) Decode(v any) error {
	return json.Unmarshal(f.Raw, v)
}

// LobbyConn is a player connection to the lobby server
type LobbyConn struct {
	conn transport.Conn
}

// DialLobby connects over TCP, or over WebSocket when cfg.WebSocket is set
func DialLobby(ctx context.Context, cfg *Config) (*LobbyConn, error) {
	opts := transport.DefaultOptions()

	if cfg.WebSocket {
		url, err := cfg.WebSocketURL()
		if err != nil {
			return nil, fmt.Errorf("invalid server URL: %w", err)
		}
		ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, fmt.Errorf("websocket dial %s: %w", url, err)
		}
		return &LobbyConn{conn: transport.NewWebSocketConn(ws, opts)}, nil
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.LobbyAddr)
	if err != nil {
		return nil, fmt.Errorf("tcp dial %s: %w", cfg.LobbyAddr, err)
	}
	return &LobbyConn{conn: transport.NewTCPConn(conn, opts)}, nil
}

// Close closes the connection
func (c *LobbyConn) Close() error {
	return c.conn.Close()
}

// Send writes one command
func (c *LobbyConn) Send(cmd model.Command) error {
	frame, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return c.conn.WriteFrame(frame)
}

// Next reads the next frame. Cancelling ctx closes the connection.
func (c *LobbyConn) Next(ctx context.Context) (Frame, error) {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	raw, err := c.conn.ReadFrame()
	if err != nil {
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}
		return Frame{}, err
	}

	var head struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return Frame{}, fmt.Errorf("malformed frame from server: %w", err)
	}
	return Frame{Action: head.Action, Raw: raw}, nil
}

// Await reads frames until one carries any of actions. An error reply ends
// the wait with a *ServerError.
func (c *LobbyConn) Await(ctx context.Context, actions ...string) (Frame, error) {
	for {
		frame, err := c.Next(ctx)
		if err != nil {
			return Frame{}, err
		}
		if frame.Action == model.ActionError {
			var msg struct {
				Message string `json:"message"`
			}
			_ = frame.Decode(&msg)
			return Frame{}, &ServerError{Message: msg.Message}
		}
		if slices.Contains(actions, frame.Action) {
			return frame, nil
		}
	}
}

// Call sends cmd and waits for a reply carrying any of actions
func (c *LobbyConn) Call(ctx context.Context, cmd model.Command, actions ...string) (Frame, error) {
	if err := c.Send(cmd); err != nil {
		return Frame{}, err
	}
	return c.Await(ctx, actions...)
}
