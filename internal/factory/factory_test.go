package factory

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventsnats "github.com/mcoot/seabattle-lobby/internal/events/nats"
	eventsredis "github.com/mcoot/seabattle-lobby/internal/events/redis"
	"github.com/mcoot/seabattle-lobby/internal/janitor"
	"github.com/mcoot/seabattle-lobby/internal/model"
)

func TestNew_DefaultsToMemorySink(t *testing.T) {
	app, err := New(Config{})
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Sink)
	assert.NotNil(t, app.Events)
	assert.NotNil(t, app.Supervisor)
	assert.NotNil(t, app.HTTPHandler())
}

func TestNew_NoSink(t *testing.T) {
	app, err := New(Config{SinkType: SinkTypeNone})
	require.NoError(t, err)

	assert.Nil(t, app.Sink)
	assert.Nil(t, app.Events)
	assert.NoError(t, app.Close())
}

func TestNew_InvalidSinkType(t *testing.T) {
	_, err := New(Config{SinkType: "kafka"})
	assert.Error(t, err)
}

func TestNew_RedisRequiresConfig(t *testing.T) {
	_, err := New(Config{SinkType: SinkTypeRedis})
	assert.Error(t, err)
}

func TestNew_NATSRequiresConfig(t *testing.T) {
	_, err := New(Config{SinkType: SinkTypeNATS})
	assert.Error(t, err)
}

func TestNew_NATSSink(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	srv := natsserver.RunServer(&opts)
	defer srv.Shutdown()

	cfg := eventsnats.DefaultConfig()
	cfg.URL = srv.ClientURL()
	cfg.MemoryStorage = true

	app, err := New(Config{SinkType: SinkTypeNATS, NATSConfig: &cfg})
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Sink.Publish(context.Background(), model.Event{Type: model.EventGameRemoved, GameID: "room-9"}))
	recent, err := app.Events.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, model.EventGameRemoved, recent[0].Type)
}

func TestNew_RedisSink(t *testing.T) {
	mini := miniredis.RunT(t)
	cfg := eventsredis.DefaultConfig()
	cfg.URL = "redis://" + mini.Addr()

	app, err := New(Config{SinkType: SinkTypeRedis, RedisConfig: &cfg})
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Sink.Publish(context.Background(), model.Event{Type: model.EventGameCreated, GameID: "room-1"}))
	recent, err := app.Events.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, model.RoomID("room-1"), recent[0].GameID)
}

func TestResolve_UsesProvidedSections(t *testing.T) {
	jan := janitor.Config{}
	r := resolve(Config{Janitor: &jan})

	assert.Equal(t, janitor.Config{}, r.janitor)
	assert.Equal(t, 8888, r.server.Port)
}
