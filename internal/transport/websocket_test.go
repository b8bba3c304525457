package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/seabattle-lobby/internal/model"
)

type WebSocketConnSuite struct {
	suite.Suite
	httpServer *httptest.Server
	serverSide chan *WebSocketConn
	conn       *WebSocketConn
	client     *websocket.Conn
}

func TestWebSocketConnSuite(t *testing.T) {
	suite.Run(t, new(WebSocketConnSuite))
}

func (s *WebSocketConnSuite) SetupTest() {
	s.serverSide = make(chan *WebSocketConn, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	opts := Options{MaxFrameSize: 64, WriteTimeout: time.Second}

	s.httpServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.serverSide <- NewWebSocketConn(ws, opts)
	}))

	url := "ws" + strings.TrimPrefix(s.httpServer.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.client = client

	select {
	case s.conn = <-s.serverSide:
	case <-time.After(2 * time.Second):
		s.FailNow("server side of websocket never arrived")
	}
}

func (s *WebSocketConnSuite) TearDownTest() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
	if s.client != nil {
		_ = s.client.Close()
	}
	s.httpServer.Close()
}

func (s *WebSocketConnSuite) TestReadFrame() {
	s.Require().NoError(s.client.WriteMessage(websocket.TextMessage, []byte(`{"action":"ping"}`)))

	frame, err := s.conn.ReadFrame()
	s.Require().NoError(err)
	s.Equal(`{"action":"ping"}`, string(frame))
}

func (s *WebSocketConnSuite) TestWriteFrame() {
	s.Require().NoError(s.conn.WriteFrame([]byte(`{"action":"pong"}`)))

	msgType, data, err := s.client.ReadMessage()
	s.Require().NoError(err)
	s.Equal(websocket.TextMessage, msgType)
	s.Equal(`{"action":"pong"}`, string(data))
}

func (s *WebSocketConnSuite) TestNormalCloseIsEOF() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	s.Require().NoError(s.client.WriteMessage(websocket.CloseMessage, msg))

	_, err := s.conn.ReadFrame()
	s.ErrorIs(err, io.EOF)
	s.False(s.conn.IsOpen())
}

func (s *WebSocketConnSuite) TestOversizedMessage() {
	s.Require().NoError(s.client.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 200))))

	_, err := s.conn.ReadFrame()
	s.ErrorIs(err, model.ErrFrameTooLarge)
}

func (s *WebSocketConnSuite) TestCloseIsIdempotent() {
	s.NoError(s.conn.Close())
	s.False(s.conn.IsOpen())
	_ = s.conn.Close()
	s.Equal(KindWebSocket, s.conn.Transport())
}
