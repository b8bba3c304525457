package factory

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/seabattle-lobby/internal/model"
	"github.com/mcoot/seabattle-lobby/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app    *TestApp
	ctx    context.Context
	cancel context.CancelFunc
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx, s.cancel = context.WithCancel(context.Background())
}

func (s *IntegrationSuite) TearDownTest() {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.NoError(s.app.Supervisor.Shutdown(ctx))
}

func (s *IntegrationSuite) connect(addr string) (*testutil.FakeConn, model.PlayerID) {
	conn, id, err := s.app.ConnectFake(s.ctx, addr)
	s.Require().NoError(err)
	return conn, id
}

func (s *IntegrationSuite) waitFor(conn *testutil.FakeConn, action string, count int) []map[string]any {
	s.Require().Eventually(func() bool {
		return len(conn.MessagesWithAction(action)) >= count
	}, 2*time.Second, 5*time.Millisecond, "waiting for %d %q messages", count, action)
	return conn.MessagesWithAction(action)
}

// Test: create, list and join a game through the full connection stack
func (s *IntegrationSuite) TestLobbyFlow() {
	aliceConn, alice := s.connect("alice")
	bobConn, bob := s.connect("bob")
	carolConn, carol := s.connect("carol")

	// Step 1: Alice names herself and creates a room
	aliceConn.Push(`{"action":"set_name","data":"Alice"}`)
	s.waitFor(aliceConn, model.ActionNameSet, 1)

	s.app.MockIDs.Queue("room-1")
	aliceConn.Push(`{"action":"create_game","data":"Room1"}`)
	created := s.waitFor(aliceConn, model.ActionGameCreated, 1)
	s.Equal("room-1", created[0]["gameId"])
	s.Equal("Room1", created[0]["gameName"])
	s.waitFor(bobConn, model.ActionGamesUpdated, 1)
	s.waitFor(carolConn, model.ActionGamesUpdated, 1)

	// Step 2: Bob lists games
	bobConn.Push(`{"action":"get_games"}`)
	lists := s.waitFor(bobConn, model.ActionGamesList, 1)
	games := lists[0]["games"].([]any)
	s.Require().Len(games, 1)
	s.Equal("Alice", games[0].(map[string]any)["creatorName"])

	// Step 3: Bob joins
	bobConn.Push(`{"action":"join_game","gameId":"room-1"}`)
	joined := s.waitFor(aliceConn, model.ActionPlayerJoined, 1)
	s.Equal(string(bob), joined[0]["opponentId"])
	bobJoined := s.waitFor(bobConn, model.ActionGameJoined, 1)
	s.Equal(string(alice), bobJoined[0]["opponentId"])
	s.Equal(false, bobJoined[0]["yourTurn"])

	room, err := s.app.Games.Get("room-1")
	s.Require().NoError(err)
	s.Equal(model.GameStatusPlacingShips, room.Status)

	// Step 4: Carol is turned away
	carolConn.Push(`{"action":"join_game","gameId":"room-1"}`)
	s.waitFor(carolConn, model.ActionError, 1)
	s.False(s.app.Games.HasPlayer(carol))

	// Step 5: the gameplay layer pushes to the room
	s.Require().NoError(s.app.Router.NotifyRoom(s.ctx, "room-1", map[string]string{"action": "game_event"}))
	s.waitFor(aliceConn, "game_event", 1)
	s.waitFor(bobConn, "game_event", 1)
	s.Empty(carolConn.MessagesWithAction("game_event"))
}

// Test: disconnecting removes the player and records the event
func (s *IntegrationSuite) TestDisconnectCleansUp() {
	conn, id := s.connect("alice")

	conn.EndInput()

	s.Eventually(func() bool { return !s.app.Players.Exists(id) }, 2*time.Second, 5*time.Millisecond)
	s.True(conn.IsClosed())

	s.Eventually(func() bool {
		recent, err := s.app.Memory.Recent(s.ctx, 1)
		return err == nil && len(recent) == 1 && recent[0].Type == model.EventPlayerDisconnected
	}, 2*time.Second, 5*time.Millisecond)
}

// Test: a disconnected player's room stays until the janitor sweeps finished rooms
func (s *IntegrationSuite) TestJanitorSweepsFinishedRooms() {
	aliceConn, alice := s.connect("alice")
	s.app.MockIDs.Queue("room-1")
	aliceConn.Push(`{"action":"create_game","data":"Room1"}`)
	s.waitFor(aliceConn, model.ActionGameCreated, 1)

	aliceConn.EndInput()
	s.Eventually(func() bool { return !s.app.Players.Exists(alice) }, 2*time.Second, 5*time.Millisecond)
	_, err := s.app.Games.Get("room-1")
	s.Require().NoError(err)

	s.Require().NoError(s.app.Games.SetWinner("room-1", alice))
	s.app.MockClock.Advance(time.Hour)

	result := s.app.Janitor.Sweep(s.ctx)
	s.Equal(1, result.GamesRemoved)
	_, err = s.app.Games.Get("room-1")
	s.ErrorIs(err, model.ErrGameNotFound)
}

// Test: real TCP clients with newline framing
func (s *IntegrationSuite) TestTCPClients() {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	go func() { _ = s.app.Supervisor.Serve(s.ctx, ln) }()

	dial := func() (net.Conn, *bufio.Scanner) {
		conn, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
		s.Require().NoError(err)
		s.T().Cleanup(func() { _ = conn.Close() })
		s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
		return conn, bufio.NewScanner(conn)
	}
	next := func(sc *bufio.Scanner) map[string]any {
		s.Require().True(sc.Scan(), "expected a frame: %v", sc.Err())
		var msg map[string]any
		s.Require().NoError(json.Unmarshal(sc.Bytes(), &msg))
		return msg
	}

	a, aScan := dial()
	b, bScan := dial()
	s.Eventually(func() bool { return s.app.Players.Count() == 2 }, 2*time.Second, 5*time.Millisecond)

	// Two commands coalesced into one write
	_, err = a.Write([]byte("{\"action\":\"ping\"}\n{\"action\":\"create_game\",\"data\":\"Room1\"}\n"))
	s.Require().NoError(err)

	s.Equal(model.ActionPong, next(aScan)["action"])
	created := next(aScan)
	s.Equal(model.ActionGameCreated, created["action"])
	s.Equal(model.ActionGamesUpdated, next(aScan)["action"])
	s.Equal(model.ActionGamesUpdated, next(bScan)["action"])

	_, err = b.Write([]byte(`{"action":"join_game","gameId":"` + created["gameId"].(string) + "\"}\n"))
	s.Require().NoError(err)

	s.Equal(model.ActionGameJoined, next(bScan)["action"])
	s.Equal(model.ActionPlayerJoined, next(aScan)["action"])
}
