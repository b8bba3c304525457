package janitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/seabattle-lobby/internal/dependencies/mocks"
	"github.com/mcoot/seabattle-lobby/internal/events"
	"github.com/mcoot/seabattle-lobby/internal/model"
	"github.com/mcoot/seabattle-lobby/internal/registry"
	"github.com/mcoot/seabattle-lobby/internal/testutil"
)

type JanitorSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	players *registry.PlayerRegistry
	games   *registry.GameRegistry
	sink    *events.MemorySink
	janitor *Janitor
}

func TestJanitorSuite(t *testing.T) {
	suite.Run(t, new(JanitorSuite))
}

func (s *JanitorSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	ids := mocks.NewMockIDGenerator()
	s.players = registry.NewPlayerRegistry(s.clock, ids, testutil.NopLogger())
	s.games = registry.NewGameRegistry(s.clock, ids, testutil.NopLogger())
	s.sink = events.NewMemorySink(10)
	s.janitor = New(s.players, s.games, s.sink, s.clock, Config{
		Interval:        10 * time.Millisecond,
		FinishedGameTTL: time.Hour,
	}, testutil.NopLogger())
}

func (s *JanitorSuite) TestSweepRemovesStaleEntries() {
	alive := s.players.Add(testutil.NewFakeConn("alive"))
	deadConn := testutil.NewFakeConn("dead")
	s.players.Add(deadConn)
	deadConn.MarkDead()

	old, err := s.games.CreateGame("p1", "Old")
	s.Require().NoError(err)
	s.Require().NoError(s.games.SetWinner(old.ID, "p1"))
	s.clock.Advance(2 * time.Hour)
	recent, err := s.games.CreateGame("p2", "Recent")
	s.Require().NoError(err)
	s.Require().NoError(s.games.SetWinner(recent.ID, "p2"))

	result := s.janitor.Sweep(context.Background())

	s.Equal(Result{PlayersRemoved: 1, GamesRemoved: 1}, result)
	s.True(s.players.Exists(alive.ID))
	s.Equal(1, s.players.Count())
	_, err = s.games.Get(recent.ID)
	s.NoError(err)
	_, err = s.games.Get(old.ID)
	s.ErrorIs(err, model.ErrGameNotFound)

	recentEvents, err := s.sink.Recent(context.Background(), 0)
	s.Require().NoError(err)
	s.Require().Len(recentEvents, 1)
	s.Equal(model.EventGamesSwept, recentEvents[0].Type)
	s.Equal("1", recentEvents[0].Detail)
}

func (s *JanitorSuite) TestSweepWithNothingToDo() {
	s.Equal(Result{}, s.janitor.Sweep(context.Background()))

	recentEvents, err := s.sink.Recent(context.Background(), 0)
	s.Require().NoError(err)
	s.Empty(recentEvents)
}

func (s *JanitorSuite) TestRunSweepsUntilCancelled() {
	deadConn := testutil.NewFakeConn("dead")
	s.players.Add(deadConn)
	deadConn.MarkDead()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.janitor.Run(ctx)
		close(done)
	}()

	s.Eventually(func() bool { return s.players.Count() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		s.FailNow("janitor did not stop")
	}
}

func (s *JanitorSuite) TestRunDisabled() {
	j := New(s.players, s.games, nil, s.clock, Config{}, testutil.NopLogger())

	done := make(chan struct{})
	go func() {
		j.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.FailNow("disabled janitor should return immediately")
	}
}
