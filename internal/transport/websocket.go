package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/seabattle-lobby/internal/model"
)

// closeGracePeriod bounds the close handshake write
const closeGracePeriod = time.Second

// WebSocketConn carries one protocol frame per text message
type WebSocketConn struct {
	conn *websocket.Conn
	opts Options

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// Ensure WebSocketConn implements Conn
var _ Conn = (*WebSocketConn)(nil)

// NewWebSocketConn wraps an established websocket connection
func NewWebSocketConn(conn *websocket.Conn, opts Options) *WebSocketConn {
	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = DefaultOptions().MaxFrameSize
	}
	conn.SetReadLimit(int64(opts.MaxFrameSize))
	return &WebSocketConn{
		conn: conn,
		opts: opts,
	}
}

// ReadFrame returns the payload of the next data message
func (c *WebSocketConn) ReadFrame() ([]byte, error) {
	for {
		if c.opts.IdleTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.IdleTimeout))
		}
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.closed.Store(true)
			switch {
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
				return nil, io.EOF
			case errors.Is(err, websocket.ErrReadLimit):
				return nil, fmt.Errorf("%w: limit %d bytes", model.ErrFrameTooLarge, c.opts.MaxFrameSize)
			}
			return nil, err
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if len(data) == 0 {
			continue
		}
		return data, nil
	}
}

// WriteFrame sends the frame as a single text message
func (c *WebSocketConn) WriteFrame(frame []byte) error {
	if c.closed.Load() {
		return net.ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.opts.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.closed.Store(true)
		return err
	}
	return nil
}

// Close sends a close message (best effort) and closes the connection
func (c *WebSocketConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		wasOpen := !c.closed.Swap(true)
		if wasOpen {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		}
		err = c.conn.Close()
	})
	return err
}

// IsOpen reports whether the connection has not been closed or failed
func (c *WebSocketConn) IsOpen() bool {
	return !c.closed.Load()
}

// RemoteAddr returns the peer address
func (c *WebSocketConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Transport returns KindWebSocket
func (c *WebSocketConn) Transport() string {
	return KindWebSocket
}
