package events

import (
	"context"
	"sync"

	"github.com/mcoot/seabattle-lobby/internal/model"
)

// DefaultMemoryCapacity is the number of events a MemorySink keeps by default
const DefaultMemoryCapacity = 256

// MemorySink keeps the most recent events in a fixed-size ring
type MemorySink struct {
	mu     sync.Mutex
	buf    []model.Event
	next   int
	filled bool
}

// Ensure MemorySink implements Store
var _ Store = (*MemorySink)(nil)

// NewMemorySink creates a MemorySink holding up to capacity events
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemorySink{buf: make([]model.Event, capacity)}
}

// Publish stores the event, evicting the oldest once full
func (s *MemorySink) Publish(_ context.Context, event model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf[s.next] = event
	s.next = (s.next + 1) % len(s.buf)
	if s.next == 0 {
		s.filled = true
	}
	return nil
}

// Recent returns up to limit events, newest first
func (s *MemorySink) Recent(_ context.Context, limit int) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.next
	if s.filled {
		size = len(s.buf)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	result := make([]model.Event, 0, limit)
	idx := s.next
	for i := 0; i < limit; i++ {
		idx = (idx - 1 + len(s.buf)) % len(s.buf)
		result = append(result, s.buf[idx])
	}
	return result, nil
}

// Close is a no-op
func (s *MemorySink) Close() error {
	return nil
}
