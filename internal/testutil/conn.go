package testutil

import (
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/mcoot/seabattle-lobby/internal/transport"
)

// ErrWriteFailed is returned by FakeConn writes when failures are enabled
var ErrWriteFailed = errors.New("fake write failure")

// FakeConn is an in-memory transport.Conn for tests.
// Inbound frames are queued with Push; outbound frames are recorded.
type FakeConn struct {
	mu         sync.Mutex
	written    [][]byte
	closed     bool
	dead       bool
	failWrites bool
	closeCount int
	addr       string

	inbound   chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
}

// Ensure FakeConn implements Conn
var _ transport.Conn = (*FakeConn)(nil)

// NewFakeConn creates an open FakeConn
func NewFakeConn(addr string) *FakeConn {
	return &FakeConn{
		addr:    addr,
		inbound: make(chan []byte, 64),
		closeCh: make(chan struct{}),
	}
}

// Push queues an inbound frame for ReadFrame
func (c *FakeConn) Push(frame string) {
	c.inbound <- []byte(frame)
}

// EndInput makes ReadFrame return io.EOF once queued frames are drained
func (c *FakeConn) EndInput() {
	close(c.inbound)
}

// ReadFrame returns the next pushed frame, or io.EOF after EndInput or Close
func (c *FakeConn) ReadFrame() ([]byte, error) {
	select {
	case frame, ok := <-c.inbound:
		if !ok {
			return nil, io.EOF
		}
		return frame, nil
	case <-c.closeCh:
		return nil, io.EOF
	}
}

// WriteFrame records the frame
func (c *FakeConn) WriteFrame(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return io.ErrClosedPipe
	}
	if c.failWrites {
		c.dead = true
		return ErrWriteFailed
	}
	buf := make([]byte, len(frame))
	copy(buf, frame)
	c.written = append(c.written, buf)
	return nil
}

// Close marks the connection closed and unblocks ReadFrame
func (c *FakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.closeCount++
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.closeCh) })
	return nil
}

// IsOpen reports whether the connection is neither closed nor dead
func (c *FakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && !c.dead
}

// RemoteAddr returns the address given to NewFakeConn
func (c *FakeConn) RemoteAddr() string {
	return c.addr
}

// Transport returns "fake"
func (c *FakeConn) Transport() string {
	return "fake"
}

// MarkDead makes IsOpen report false without closing the connection
func (c *FakeConn) MarkDead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dead = true
}

// FailWrites makes every subsequent write fail
func (c *FakeConn) FailWrites() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWrites = true
}

// IsClosed reports whether Close was called
func (c *FakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// CloseCount returns how many times Close was called
func (c *FakeConn) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCount
}

// Written returns a copy of every recorded outbound frame
func (c *FakeConn) Written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}

// Messages decodes every recorded frame as a JSON object.
// Frames that are not JSON objects are skipped.
func (c *FakeConn) Messages() []map[string]any {
	var msgs []map[string]any
	for _, frame := range c.Written() {
		var msg map[string]any
		if err := json.Unmarshal(frame, &msg); err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// MessagesWithAction returns the decoded frames whose action matches
func (c *FakeConn) MessagesWithAction(action string) []map[string]any {
	var out []map[string]any
	for _, msg := range c.Messages() {
		if msg["action"] == action {
			out = append(out, msg)
		}
	}
	return out
}
