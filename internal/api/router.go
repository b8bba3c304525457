package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/seabattle-lobby/internal/api/apierr"
	"github.com/mcoot/seabattle-lobby/internal/api/handler"
	"github.com/mcoot/seabattle-lobby/internal/dependencies/clock"
	"github.com/mcoot/seabattle-lobby/internal/events"
	"github.com/mcoot/seabattle-lobby/internal/middleware"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger   *slog.Logger
	Clock    clock.Clock
	Players  handler.PlayerStore
	Games    handler.GameStore
	Notifier handler.RoomNotifier
	Sender   handler.Sender
	Sink     events.Sink
	// Events serves GET /events; nil disables it
	Events events.Reader
	// WebSocket serves GET /ws; nil disables it
	WebSocket http.HandlerFunc
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	logger := cfg.Logger.With(slog.String("component", "api"))

	// Create handlers
	statsHandler := handler.NewStatsHandler(cfg.Players, cfg.Games, cfg.Events)
	gameHandler := handler.NewGameHandler(cfg.Games, cfg.Notifier, cfg.Sender, cfg.Sink, cfg.Clock, logger)
	playerHandler := handler.NewPlayerHandler(cfg.Players, cfg.Sender)

	// Create middleware; logging wraps recovery so panics are logged with their 500
	loggingMiddleware := middleware.Logging(logger)
	recoveryMiddleware := middleware.Recovery(logger, writePanic)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(loggingMiddleware)
	api.Use(recoveryMiddleware)

	api.HandleFunc("/health", statsHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/stats", statsHandler.Stats).Methods(http.MethodGet)
	api.HandleFunc("/events", statsHandler.Events).Methods(http.MethodGet)

	// Game routes
	api.HandleFunc("/games", gameHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", gameHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", gameHandler.Update).Methods(http.MethodPatch)
	api.HandleFunc("/games/{id}", gameHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/games/{id}/notify", gameHandler.Notify).Methods(http.MethodPost)

	// Player routes
	api.HandleFunc("/players", playerHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}", playerHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}", playerHandler.Disconnect).Methods(http.MethodDelete)
	api.HandleFunc("/players/{id}/message", playerHandler.Message).Methods(http.MethodPost)

	// WebSocket players connect outside the versioned API
	if cfg.WebSocket != nil {
		ws := r.PathPrefix("/ws").Subrouter()
		ws.Use(loggingMiddleware)
		ws.Use(recoveryMiddleware)
		ws.HandleFunc("", cfg.WebSocket).Methods(http.MethodGet)
	}

	return r
}

// writePanic answers a recovered panic with the JSON internal error
func writePanic(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
