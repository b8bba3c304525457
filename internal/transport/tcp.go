package transport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/seabattle-lobby/internal/model"
)

// TCPConn frames a byte stream as newline-delimited messages
type TCPConn struct {
	conn    net.Conn
	scanner *bufio.Scanner
	opts    Options

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// Ensure TCPConn implements Conn
var _ Conn = (*TCPConn)(nil)

// NewTCPConn wraps a stream connection
func NewTCPConn(conn net.Conn, opts Options) *TCPConn {
	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = DefaultOptions().MaxFrameSize
	}
	scanner := bufio.NewScanner(conn)
	// The scanner needs room for the delimiter on top of the frame itself.
	// Its limit is the larger of max and cap(buf), so buf must not exceed it.
	limit := opts.MaxFrameSize + 1
	scanner.Buffer(make([]byte, 0, min(4096, limit)), limit)
	return &TCPConn{
		conn:    conn,
		scanner: scanner,
		opts:    opts,
	}
}

// ReadFrame returns the next non-empty line, without its line terminator
func (c *TCPConn) ReadFrame() ([]byte, error) {
	for {
		if c.opts.IdleTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.IdleTimeout))
		}
		if !c.scanner.Scan() {
			err := c.scanner.Err()
			c.closed.Store(true)
			if err == nil {
				return nil, io.EOF
			}
			if errors.Is(err, bufio.ErrTooLong) {
				return nil, fmt.Errorf("%w: limit %d bytes", model.ErrFrameTooLarge, c.opts.MaxFrameSize)
			}
			return nil, err
		}
		line := bytes.TrimSpace(c.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		frame := make([]byte, len(line))
		copy(frame, line)
		return frame, nil
	}
}

// WriteFrame writes the frame followed by a newline. A frame may end in a
// newline but must not contain one anywhere else.
func (c *TCPConn) WriteFrame(frame []byte) error {
	if c.closed.Load() {
		return net.ErrClosed
	}
	if bytes.IndexByte(bytes.TrimSuffix(frame, []byte("\n")), '\n') >= 0 {
		return model.ErrFrameLineBreak
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.opts.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	}

	buf := frame
	if len(frame) == 0 || frame[len(frame)-1] != '\n' {
		buf = make([]byte, 0, len(frame)+1)
		buf = append(buf, frame...)
		buf = append(buf, '\n')
	}

	if _, err := c.conn.Write(buf); err != nil {
		c.closed.Store(true)
		return err
	}
	return nil
}

// Close closes the underlying connection
func (c *TCPConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.conn.Close()
	})
	return err
}

// IsOpen reports whether the connection has not been closed or failed
func (c *TCPConn) IsOpen() bool {
	return !c.closed.Load()
}

// RemoteAddr returns the peer address
func (c *TCPConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Transport returns KindTCP
func (c *TCPConn) Transport() string {
	return KindTCP
}
