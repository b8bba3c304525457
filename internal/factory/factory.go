package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/seabattle-lobby/internal/api"
	"github.com/mcoot/seabattle-lobby/internal/dependencies/clock"
	"github.com/mcoot/seabattle-lobby/internal/dependencies/idgen"
	"github.com/mcoot/seabattle-lobby/internal/dispatch"
	"github.com/mcoot/seabattle-lobby/internal/events"
	eventsnats "github.com/mcoot/seabattle-lobby/internal/events/nats"
	eventsredis "github.com/mcoot/seabattle-lobby/internal/events/redis"
	"github.com/mcoot/seabattle-lobby/internal/janitor"
	"github.com/mcoot/seabattle-lobby/internal/protocol"
	"github.com/mcoot/seabattle-lobby/internal/registry"
	"github.com/mcoot/seabattle-lobby/internal/server"
)

// Event sink type constants
const (
	SinkTypeMemory = "memory"
	SinkTypeRedis  = "redis"
	SinkTypeNATS   = "nats"
	SinkTypeNone   = "none"
)

// App contains all wired application components
type App struct {
	// Event sink and its read side; both nil when events are disabled
	Sink   events.Sink
	Events events.Reader

	// External dependencies
	Clock clock.Clock
	IDs   idgen.Generator

	// Core
	Players    *registry.PlayerRegistry
	Games      *registry.GameRegistry
	Dispatcher *dispatch.Dispatcher
	Router     *protocol.Router
	Supervisor *server.Supervisor
	Janitor    *janitor.Janitor

	Logger *slog.Logger
}

// Config holds configuration for the application factory.
// Nil section configs fall back to each package's DefaultConfig.
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// SinkType selects the event sink ("memory", "redis", "nats" or "none")
	// If empty, defaults to "memory"
	SinkType string
	// MemorySinkCapacity bounds the memory sink (optional)
	MemorySinkCapacity int
	// RedisConfig holds Redis connection settings (required if SinkType is "redis")
	RedisConfig *eventsredis.Config
	// NATSConfig holds JetStream settings (required if SinkType is "nats")
	NATSConfig *eventsnats.Config

	Server   *server.Config
	Dispatch *dispatch.Config
	Protocol *protocol.Config
	Janitor  *janitor.Config
}

// resolved holds every section config with defaults applied
type resolved struct {
	server   server.Config
	dispatch dispatch.Config
	protocol protocol.Config
	janitor  janitor.Config
}

func resolve(cfg Config) resolved {
	r := resolved{
		server:   server.DefaultConfig(),
		dispatch: dispatch.DefaultConfig(),
		protocol: protocol.DefaultConfig(),
		janitor:  janitor.DefaultConfig(),
	}
	if cfg.Server != nil {
		r.server = *cfg.Server
	}
	if cfg.Dispatch != nil {
		r.dispatch = *cfg.Dispatch
	}
	if cfg.Protocol != nil {
		r.protocol = *cfg.Protocol
	}
	if cfg.Janitor != nil {
		r.janitor = *cfg.Janitor
	}
	return r
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	sinkType := cfg.SinkType
	if sinkType == "" {
		sinkType = SinkTypeMemory
	}

	var store events.Store
	switch sinkType {
	case SinkTypeMemory:
		store = events.NewMemorySink(cfg.MemorySinkCapacity)
	case SinkTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when SinkType is redis")
		}
		redisSink, err := eventsredis.New(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("create redis event sink: %w", err)
		}
		store = redisSink
	case SinkTypeNATS:
		if cfg.NATSConfig == nil {
			return nil, errors.New("NATSConfig required when SinkType is nats")
		}
		natsSink, err := eventsnats.New(*cfg.NATSConfig)
		if err != nil {
			return nil, fmt.Errorf("create nats event sink: %w", err)
		}
		store = natsSink
	case SinkTypeNone:
	default:
		return nil, errors.New("invalid SinkType: must be 'memory', 'redis', 'nats' or 'none'")
	}

	app := newWithDependencies(store, clock.New(), idgen.New(), resolve(cfg), logger)
	logger.Info("application wired", slog.String("event_sink", sinkType))
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store events.Store, clk clock.Clock, ids idgen.Generator, cfg resolved, logger *slog.Logger) *App {
	// A nil Store must not leak into the interfaces as a typed nil
	var sink events.Sink
	var reader events.Reader
	if store != nil {
		sink = store
		reader = store
	}

	players := registry.NewPlayerRegistry(clk, ids, logger)
	games := registry.NewGameRegistry(clk, ids, logger)
	dispatcher := dispatch.New(players, cfg.dispatch, logger)
	router := protocol.NewRouter(players, games, dispatcher, sink, clk, cfg.protocol, logger)
	supervisor := server.NewSupervisor(players, router, sink, clk, cfg.server, logger)
	jan := janitor.New(players, games, sink, clk, cfg.janitor, logger)

	return &App{
		Sink:       sink,
		Events:     reader,
		Clock:      clk,
		IDs:        ids,
		Players:    players,
		Games:      games,
		Dispatcher: dispatcher,
		Router:     router,
		Supervisor: supervisor,
		Janitor:    jan,
		Logger:     logger,
	}
}

// HTTPHandler builds the admin API, including the WebSocket endpoint
func (a *App) HTTPHandler() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:    a.Logger,
		Clock:     a.Clock,
		Players:   a.Players,
		Games:     a.Games,
		Notifier:  a.Router,
		Sender:    a.Dispatcher,
		Sink:      a.Sink,
		Events:    a.Events,
		WebSocket: a.Supervisor.ServeWebSocket,
	})
}

// Close releases the event sink
func (a *App) Close() error {
	if a.Sink == nil {
		return nil
	}
	return a.Sink.Close()
}
