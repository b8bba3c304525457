package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/seabattle-lobby/internal/model"
)

func publishN(t *testing.T, sink *MemorySink, n int) {
	t.Helper()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		require.NoError(t, sink.Publish(context.Background(), model.Event{
			Type:      model.EventGameCreated,
			Timestamp: base.Add(time.Duration(i) * time.Second),
			GameID:    model.RoomID(fmt.Sprintf("room-%d", i)),
		}))
	}
}

func gameIDs(events []model.Event) []model.RoomID {
	ids := make([]model.RoomID, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.GameID)
	}
	return ids
}

func TestMemorySink_RecentNewestFirst(t *testing.T) {
	sink := NewMemorySink(10)
	publishN(t, sink, 3)

	events, err := sink.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []model.RoomID{"room-2", "room-1", "room-0"}, gameIDs(events))
}

func TestMemorySink_RecentLimit(t *testing.T) {
	sink := NewMemorySink(10)
	publishN(t, sink, 5)

	events, err := sink.Recent(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []model.RoomID{"room-4", "room-3"}, gameIDs(events))
}

func TestMemorySink_EvictsOldest(t *testing.T) {
	sink := NewMemorySink(3)
	publishN(t, sink, 5)

	events, err := sink.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []model.RoomID{"room-4", "room-3", "room-2"}, gameIDs(events))
}

func TestMemorySink_ExactlyFull(t *testing.T) {
	sink := NewMemorySink(3)
	publishN(t, sink, 3)

	events, err := sink.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []model.RoomID{"room-2", "room-1", "room-0"}, gameIDs(events))
}

func TestMemorySink_Empty(t *testing.T) {
	sink := NewMemorySink(0)

	events, err := sink.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, sink.Close())
}
