package server

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/seabattle-lobby/internal/dependencies/mocks"
	"github.com/mcoot/seabattle-lobby/internal/events"
	"github.com/mcoot/seabattle-lobby/internal/model"
	"github.com/mcoot/seabattle-lobby/internal/registry"
	"github.com/mcoot/seabattle-lobby/internal/testutil"
	"github.com/mcoot/seabattle-lobby/internal/transport"
)

// recordingHandler remembers every frame it is given and echoes it back
type recordingHandler struct {
	mu      sync.Mutex
	frames  []string
	players *registry.PlayerRegistry
}

func (h *recordingHandler) Handle(_ context.Context, id model.PlayerID, frame []byte) {
	h.mu.Lock()
	h.frames = append(h.frames, string(frame))
	h.mu.Unlock()

	if player, err := h.players.Get(id); err == nil {
		_ = player.Conn.WriteFrame(frame)
	}
}

func (h *recordingHandler) Frames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.frames...)
}

type SupervisorSuite struct {
	suite.Suite
	players    *registry.PlayerRegistry
	handler    *recordingHandler
	sink       *events.MemorySink
	cfg        Config
	supervisor *Supervisor
}

func TestSupervisorSuite(t *testing.T) {
	suite.Run(t, new(SupervisorSuite))
}

func (s *SupervisorSuite) SetupTest() {
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.players = registry.NewPlayerRegistry(clk, mocks.NewMockIDGenerator(), testutil.NopLogger())
	s.handler = &recordingHandler{players: s.players}
	s.sink = events.NewMemorySink(100)
	s.cfg = DefaultConfig()
	s.cfg.Transport.MaxFrameSize = 128
	s.cfg.Transport.WriteTimeout = time.Second
	s.supervisor = NewSupervisor(s.players, s.handler, s.sink, clk, s.cfg, testutil.NopLogger())
}

func (s *SupervisorSuite) TearDownTest() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.supervisor.Shutdown(ctx)
}

func (s *SupervisorSuite) eventTypes() []model.EventType {
	recent, err := s.sink.Recent(context.Background(), 0)
	s.Require().NoError(err)
	types := make([]model.EventType, 0, len(recent))
	for _, e := range recent {
		types = append(types, e.Type)
	}
	return types
}

// startTCP serves a loopback listener and returns its address and a channel
// that yields Serve's result
func (s *SupervisorSuite) startTCP(ctx context.Context) (string, <-chan error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)

	result := make(chan error, 1)
	go func() {
		result <- s.supervisor.Serve(ctx, ln)
	}()
	return ln.Addr().String(), result
}

func (s *SupervisorSuite) dial(addr string) net.Conn {
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

// ServeConn tests

func (s *SupervisorSuite) TestServeConnForwardsFramesAndCleansUp() {
	conn := testutil.NewFakeConn("fake:1")
	conn.Push(`{"action":"ping"}`)
	conn.Push(`{"action":"get_games"}`)
	conn.EndInput()

	s.supervisor.ServeConn(context.Background(), conn)

	s.Equal([]string{`{"action":"ping"}`, `{"action":"get_games"}`}, s.handler.Frames())
	s.Equal(0, s.players.Count())
	s.True(conn.IsClosed())
	s.Equal(1, conn.CloseCount())
	s.Equal(0, s.supervisor.ActiveConnections())
	s.Equal([]model.EventType{model.EventPlayerDisconnected, model.EventPlayerConnected}, s.eventTypes())
}

func (s *SupervisorSuite) TestServeConnRegistersPlayerWhileReading() {
	conn := testutil.NewFakeConn("fake:1")
	done := make(chan struct{})
	go func() {
		s.supervisor.ServeConn(context.Background(), conn)
		close(done)
	}()

	s.Eventually(func() bool { return s.players.Count() == 1 }, time.Second, 5*time.Millisecond)
	s.Equal(1, s.supervisor.ActiveConnections())

	conn.EndInput()
	select {
	case <-done:
	case <-time.After(time.Second):
		s.FailNow("ServeConn did not return")
	}
	s.Equal(0, s.players.Count())
}

func (s *SupervisorSuite) TestServeConnStopsOnContextCancel() {
	conn := testutil.NewFakeConn("fake:1")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.supervisor.ServeConn(ctx, conn)
		close(done)
	}()
	s.Eventually(func() bool { return s.players.Count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.FailNow("ServeConn did not return after cancel")
	}
	s.Equal(0, s.players.Count())
	s.Contains(s.eventTypes(), model.EventPlayerDisconnected)
}

func (s *SupervisorSuite) TestServeConnAfterShutdownClosesImmediately() {
	s.Require().NoError(s.supervisor.Shutdown(context.Background()))
	conn := testutil.NewFakeConn("fake:1")

	s.supervisor.ServeConn(context.Background(), conn)

	s.True(conn.IsClosed())
	s.Equal(0, s.players.Count())
	s.Empty(s.eventTypes())
}

// TCP tests

func (s *SupervisorSuite) TestServeTCPSplitsFramesAndRemovesPlayerOnClose() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, _ := s.startTCP(ctx)

	client := s.dial(addr)
	_, err := client.Write([]byte("{\"action\":\"ping\"}\n{\"action\":\"get_"))
	s.Require().NoError(err)
	_, err = client.Write([]byte("games\"}\n"))
	s.Require().NoError(err)

	reader := bufio.NewReader(client)
	s.Require().NoError(client.SetReadDeadline(time.Now().Add(2 * time.Second)))
	first, err := reader.ReadString('\n')
	s.Require().NoError(err)
	s.Equal("{\"action\":\"ping\"}\n", first)
	second, err := reader.ReadString('\n')
	s.Require().NoError(err)
	s.Equal("{\"action\":\"get_games\"}\n", second)

	s.Equal(1, s.players.Count())
	s.Require().NoError(client.Close())
	s.Eventually(func() bool { return s.players.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func (s *SupervisorSuite) TestServeTCPOversizedFrameClosesConnection() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, _ := s.startTCP(ctx)

	client := s.dial(addr)
	_, err := client.Write([]byte(strings.Repeat("x", 512) + "\n"))
	s.Require().NoError(err)

	s.Require().NoError(client.SetReadDeadline(time.Now().Add(2 * time.Second)))
	buf := make([]byte, 1)
	_, err = client.Read(buf)
	s.Error(err)
	s.Empty(s.handler.Frames())
	s.Eventually(func() bool { return s.players.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func (s *SupervisorSuite) TestServeReturnsOnContextCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	addr, result := s.startTCP(ctx)
	client := s.dial(addr)
	_, err := client.Write([]byte("{\"action\":\"ping\"}\n"))
	s.Require().NoError(err)
	s.Eventually(func() bool { return len(s.handler.Frames()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-result:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.FailNow("Serve did not return")
	}
	s.Eventually(func() bool { return s.players.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func (s *SupervisorSuite) TestShutdownClosesConnections() {
	addr, result := s.startTCP(context.Background())
	for i := 0; i < 3; i++ {
		s.dial(addr)
	}
	s.Eventually(func() bool { return s.supervisor.ActiveConnections() == 3 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Require().NoError(s.supervisor.Shutdown(ctx))

	s.Equal(0, s.supervisor.ActiveConnections())
	s.Equal(0, s.players.Count())
	select {
	case err := <-result:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.FailNow("Serve did not return")
	}
}

func (s *SupervisorSuite) TestServeAfterShutdown() {
	s.Require().NoError(s.supervisor.Shutdown(context.Background()))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)

	err = s.supervisor.Serve(context.Background(), ln)
	s.ErrorIs(err, ErrShuttingDown)
}

func (s *SupervisorSuite) TestListenAndServeBindFailure() {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	defer ln.Close()

	cfg := s.cfg
	cfg.Host = "127.0.0.1"
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	sup := NewSupervisor(s.players, s.handler, s.sink, mocks.NewMockClock(time.Now()), cfg, testutil.NopLogger())

	s.Error(sup.ListenAndServe(context.Background()))
}

// WebSocket tests

func (s *SupervisorSuite) wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func (s *SupervisorSuite) TestServeWebSocket() {
	httpServer := httptest.NewServer(http.HandlerFunc(s.supervisor.ServeWebSocket))
	defer httpServer.Close()

	client, _, err := websocket.DefaultDialer.Dial(s.wsURL(httpServer), nil)
	s.Require().NoError(err)
	defer client.Close()

	s.Require().NoError(client.WriteMessage(websocket.TextMessage, []byte(`{"action":"ping"}`)))
	s.Require().NoError(client.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, echoed, err := client.ReadMessage()
	s.Require().NoError(err)
	s.Equal(`{"action":"ping"}`, string(echoed))

	players := s.players.ListConnected()
	s.Require().Len(players, 1)
	s.Equal(transport.KindWebSocket, players[0].Conn.Transport())

	s.Require().NoError(client.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	s.Eventually(func() bool { return s.players.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func (s *SupervisorSuite) TestServeWebSocketRejectsOrigin() {
	cfg := s.cfg
	cfg.AllowedOrigins = []string{"https://seabattle.example"}
	sup := NewSupervisor(s.players, s.handler, s.sink, mocks.NewMockClock(time.Now()), cfg, testutil.NopLogger())
	httpServer := httptest.NewServer(http.HandlerFunc(sup.ServeWebSocket))
	defer httpServer.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(s.wsURL(httpServer), header)
	s.Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://seabattle.example")
	client, _, err := websocket.DefaultDialer.Dial(s.wsURL(httpServer), header)
	s.Require().NoError(err)
	_ = client.Close()
}

func (s *SupervisorSuite) TestServeWebSocketDuringShutdown() {
	s.Require().NoError(s.supervisor.Shutdown(context.Background()))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	s.supervisor.ServeWebSocket(rec, req)

	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *SupervisorSuite) TestNextBackoff() {
	s.Equal(s.cfg.AcceptBackoffMin, s.supervisor.nextBackoff(0))
	s.Equal(2*s.cfg.AcceptBackoffMin, s.supervisor.nextBackoff(s.cfg.AcceptBackoffMin))
	s.Equal(s.cfg.AcceptBackoffMax, s.supervisor.nextBackoff(s.cfg.AcceptBackoffMax))
}
