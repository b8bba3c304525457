package factory

import (
	"context"
	"errors"
	"time"

	"github.com/mcoot/seabattle-lobby/internal/dependencies/mocks"
	"github.com/mcoot/seabattle-lobby/internal/events"
	"github.com/mcoot/seabattle-lobby/internal/model"
	"github.com/mcoot/seabattle-lobby/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	MockIDs   *mocks.MockIDGenerator
	Memory    *events.MemorySink
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	sink := events.NewMemorySink(events.DefaultMemoryCapacity)
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDGenerator()

	app := newWithDependencies(sink, mockClock, mockIDs, resolve(Config{}), testutil.NopLogger())

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		MockIDs:   mockIDs,
		Memory:    sink,
	}
}

// ConnectFake serves an in-memory connection through the supervisor and
// returns it once its player is registered
func (t *TestApp) ConnectFake(ctx context.Context, addr string) (*testutil.FakeConn, model.PlayerID, error) {
	conn := testutil.NewFakeConn(addr)
	go t.Supervisor.ServeConn(ctx, conn)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, p := range t.Players.ListAll() {
			if p.Conn == conn {
				return conn, p.ID, nil
			}
		}
		time.Sleep(time.Millisecond)
	}
	return nil, "", errors.New("fake connection was not registered")
}
