package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/seabattle-lobby/internal/dependencies/idgen"
)

// MockIDGenerator is a mock implementation of idgen.Generator for testing
type MockIDGenerator struct {
	mu sync.Mutex

	// IDs is a queue of results to return from NewID
	IDs     []string
	idIndex int

	// Prefix is used for generated fallback ids once the queue is empty
	Prefix  string
	counter int
}

// Ensure MockIDGenerator implements Generator
var _ idgen.Generator = (*MockIDGenerator)(nil)

// NewMockIDGenerator creates a MockIDGenerator that falls back to "id-N"
func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{Prefix: "id"}
}

// NewID returns the next queued id, or a sequential fallback
func (g *MockIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idIndex < len(g.IDs) {
		id := g.IDs[g.idIndex]
		g.idIndex++
		return id
	}
	g.counter++
	return fmt.Sprintf("%s-%d", g.Prefix, g.counter)
}

// Queue adds values to the id queue
func (g *MockIDGenerator) Queue(ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.IDs = append(g.IDs, ids...)
}

// Reset clears queued ids and the fallback counter
func (g *MockIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.IDs = nil
	g.idIndex = 0
	g.counter = 0
}
