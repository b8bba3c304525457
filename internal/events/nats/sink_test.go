package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/seabattle-lobby/internal/model"
)

type SinkSuite struct {
	suite.Suite
	url  string
	sink *Sink
	cfg  Config
	ctx  context.Context
}

func TestSinkSuite(t *testing.T) {
	suite.Run(t, new(SinkSuite))
}

func (s *SinkSuite) SetupTest() {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = s.T().TempDir()
	srv := natsserver.RunServer(&opts)
	s.T().Cleanup(srv.Shutdown)

	s.url = srv.ClientURL()
	s.cfg = DefaultConfig()
	s.cfg.URL = s.url
	s.cfg.MaxEvents = 3
	s.cfg.MemoryStorage = true

	sink, err := New(s.cfg)
	s.Require().NoError(err)
	s.sink = sink
	s.ctx = context.Background()
}

func (s *SinkSuite) TearDownTest() {
	if s.sink != nil {
		_ = s.sink.Close()
	}
}

func (s *SinkSuite) event(i int) model.Event {
	return model.Event{
		Type:      model.EventGameCreated,
		Timestamp: time.Date(2024, 1, 1, 12, 0, i, 0, time.UTC),
		PlayerID:  "player-1",
		GameID:    model.RoomID(fmt.Sprintf("room-%d", i)),
		Detail:    "Room",
	}
}

func (s *SinkSuite) TestRecentEmpty() {
	recent, err := s.sink.Recent(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(recent)
}

func (s *SinkSuite) TestPublishStoresRecent() {
	s.Require().NoError(s.sink.Publish(s.ctx, s.event(1)))
	s.Require().NoError(s.sink.Publish(s.ctx, s.event(2)))

	recent, err := s.sink.Recent(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(model.RoomID("room-2"), recent[0].GameID)
	s.Equal(model.RoomID("room-1"), recent[1].GameID)
	s.True(recent[0].Timestamp.Equal(s.event(2).Timestamp))
}

func (s *SinkSuite) TestStreamDiscardsOldest() {
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.sink.Publish(s.ctx, s.event(i)))
	}

	recent, err := s.sink.Recent(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(recent, 3)
	s.Equal(model.RoomID("room-4"), recent[0].GameID)
	s.Equal(model.RoomID("room-2"), recent[2].GameID)
}

func (s *SinkSuite) TestRecentLimit() {
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.sink.Publish(s.ctx, s.event(i)))
	}

	recent, err := s.sink.Recent(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(model.RoomID("room-2"), recent[0].GameID)
	s.Equal(model.RoomID("room-1"), recent[1].GameID)
}

func (s *SinkSuite) TestPublishUsesTypedSubject() {
	nc, err := nats.Connect(s.url)
	s.Require().NoError(err)
	defer nc.Close()

	sub, err := nc.SubscribeSync(s.cfg.SubjectPrefix + ".game_created")
	s.Require().NoError(err)
	s.Require().NoError(nc.Flush())

	s.Require().NoError(s.sink.Publish(s.ctx, s.event(7)))

	msg, err := sub.NextMsg(2 * time.Second)
	s.Require().NoError(err)
	s.Equal("seabattle.events.game_created", msg.Subject)

	var got model.Event
	s.Require().NoError(json.Unmarshal(msg.Data, &got))
	s.Equal(model.RoomID("room-7"), got.GameID)
}

func (s *SinkSuite) TestReconnectKeepsHistory() {
	s.Require().NoError(s.sink.Publish(s.ctx, s.event(1)))
	s.Require().NoError(s.sink.Close())

	again, err := New(s.cfg)
	s.Require().NoError(err)
	s.sink = again

	recent, err := again.Recent(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(recent, 1)
	s.Equal(model.RoomID("room-1"), recent[0].GameID)
}

func (s *SinkSuite) TestNewUnreachable() {
	cfg := DefaultConfig()
	cfg.URL = "nats://127.0.0.1:1"
	cfg.ConnectTimeout = 200 * time.Millisecond

	_, err := New(cfg)
	s.Error(err)
}
