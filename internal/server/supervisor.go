package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/seabattle-lobby/internal/dependencies/clock"
	"github.com/mcoot/seabattle-lobby/internal/events"
	"github.com/mcoot/seabattle-lobby/internal/model"
	"github.com/mcoot/seabattle-lobby/internal/transport"
)

// ErrShuttingDown is returned when new work arrives after Shutdown
var ErrShuttingDown = errors.New("server is shutting down")

// Registry is the view of the player registry the supervisor needs
type Registry interface {
	Add(conn model.Connection) *model.Player
	Remove(id model.PlayerID) bool
}

// Handler processes inbound frames
type Handler interface {
	Handle(ctx context.Context, playerID model.PlayerID, frame []byte)
}

// Supervisor accepts connections, runs one read loop per player and
// guarantees each player is removed exactly once when its loop ends
type Supervisor struct {
	players  Registry
	handler  Handler
	sink     events.Sink
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu        sync.Mutex
	closing   bool
	listeners map[net.Listener]struct{}
	conns     map[transport.Conn]struct{}
	wg        sync.WaitGroup
}

// NewSupervisor creates a Supervisor
func NewSupervisor(
	players Registry,
	handler Handler,
	sink events.Sink,
	clock clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Supervisor {
	s := &Supervisor{
		players:   players,
		handler:   handler,
		sink:      sink,
		clock:     clock,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "supervisor")),
		listeners: make(map[net.Listener]struct{}),
		conns:     make(map[transport.Conn]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Addr returns the configured TCP listen address
func (s *Supervisor) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// ListenAndServe binds the configured address and serves it until ctx is
// cancelled or Shutdown is called. Failing to bind is the only error.
func (s *Supervisor) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln, handling each on its own goroutine.
// It returns nil once ctx is cancelled or the listener is closed.
func (s *Supervisor) Serve(ctx context.Context, ln net.Listener) error {
	if !s.trackListener(ln) {
		_ = ln.Close()
		return ErrShuttingDown
	}
	defer s.untrackListener(ln)

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	s.logger.Info("accepting connections", slog.String("addr", ln.Addr().String()))

	var backoff time.Duration
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || s.isClosing() || errors.Is(err, net.ErrClosed) {
				s.logger.Info("stopped accepting connections", slog.String("addr", ln.Addr().String()))
				return nil
			}

			backoff = s.nextBackoff(backoff)
			s.logger.Warn("accept failed, retrying",
				slog.Any("error", err),
				slog.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		backoff = 0

		go s.ServeConn(ctx, transport.NewTCPConn(nc, s.cfg.Transport))
	}
}

// ServeWebSocket upgrades the request and serves the connection until it ends
func (s *Supervisor) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.isClosing() {
		http.Error(w, ErrShuttingDown.Error(), http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response
		s.logger.Warn("websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.Any("error", err))
		return
	}

	s.ServeConn(r.Context(), transport.NewWebSocketConn(ws, s.cfg.Transport))
}

// ServeConn registers the connection as a player and reads frames until the
// peer goes away, a read fails, or ctx is cancelled
func (s *Supervisor) ServeConn(ctx context.Context, conn transport.Conn) {
	if !s.trackConn(conn) {
		_ = conn.Close()
		return
	}
	defer s.untrackConn(conn)

	player := s.players.Add(conn)
	logger := s.logger.With(
		slog.String("player_id", string(player.ID)),
		slog.String("remote_addr", conn.RemoteAddr()),
		slog.String("transport", conn.Transport()))

	logger.Info("player connected")
	s.publish(ctx, model.Event{
		Type:     model.EventPlayerConnected,
		PlayerID: player.ID,
		Detail:   conn.Transport(),
	})

	// Unblock the read when the server context ends
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	var cleanup sync.Once
	defer cleanup.Do(func() {
		stop()
		s.players.Remove(player.ID)
		s.publish(context.WithoutCancel(ctx), model.Event{
			Type:     model.EventPlayerDisconnected,
			PlayerID: player.ID,
		})
		logger.Info("player disconnected", slog.Duration("session", s.clock.Since(player.ConnectedAt)))
	})

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				logger.Debug("peer closed connection")
			case errors.Is(err, model.ErrFrameTooLarge):
				logger.Warn("frame too large, closing connection", slog.Any("error", err))
			case ctx.Err() != nil:
				logger.Debug("connection closed by server")
			default:
				logger.Info("read failed", slog.Any("error", err))
			}
			return
		}
		s.handler.Handle(ctx, player.ID, frame)
	}
}

// Shutdown stops accepting, closes every live connection and waits for the
// read loops to finish or ctx to end
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	listeners := make([]net.Listener, 0, len(s.listeners))
	for ln := range s.listeners {
		listeners = append(listeners, ln)
	}
	conns := make([]transport.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	s.logger.Info("shutting down supervisor",
		slog.Int("listeners", len(listeners)),
		slog.Int("connections", len(conns)))

	for _, ln := range listeners {
		_ = ln.Close()
	}
	for _, conn := range conns {
		_ = conn.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("supervisor stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for connections: %w", ctx.Err())
	}
}

// ActiveConnections returns the number of running read loops
func (s *Supervisor) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Supervisor) trackListener(ln net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.listeners[ln] = struct{}{}
	return true
}

func (s *Supervisor) untrackListener(ln net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, ln)
}

// trackConn adds to the wait group under mu so Shutdown never races an Add
func (s *Supervisor) trackConn(conn transport.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Supervisor) untrackConn(conn transport.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Supervisor) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Supervisor) nextBackoff(current time.Duration) time.Duration {
	if current <= 0 {
		if s.cfg.AcceptBackoffMin <= 0 {
			return 5 * time.Millisecond
		}
		return s.cfg.AcceptBackoffMin
	}
	next := current * 2
	if s.cfg.AcceptBackoffMax > 0 && next > s.cfg.AcceptBackoffMax {
		next = s.cfg.AcceptBackoffMax
	}
	return next
}

func (s *Supervisor) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.cfg.AllowedOrigins, origin)
}

func (s *Supervisor) publish(ctx context.Context, event model.Event) {
	if s.sink == nil {
		return
	}
	event.Timestamp = s.clock.Now()
	if err := s.sink.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			slog.String("type", string(event.Type)),
			slog.Any("error", err))
	}
}
