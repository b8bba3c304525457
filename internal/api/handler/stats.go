package handler

import (
	"net/http"
	"strconv"

	"github.com/mcoot/seabattle-lobby/internal/api/apierr"
	"github.com/mcoot/seabattle-lobby/internal/api/response"
	"github.com/mcoot/seabattle-lobby/internal/events"
)

// defaultEventLimit is the number of events returned when no limit is given
const defaultEventLimit = 50

// StatsHandler handles health, statistics and event history endpoints
type StatsHandler struct {
	players PlayerStore
	games   GameStore
	events  events.Reader
}

// NewStatsHandler creates a new stats handler; events may be nil
func NewStatsHandler(players PlayerStore, games GameStore, events events.Reader) *StatsHandler {
	return &StatsHandler{
		players: players,
		games:   games,
		events:  events,
	}
}

// Health handles GET /api/v1/health
func (h *StatsHandler) Health(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, response.Health{Status: "ok"})
}

// Stats handles GET /api/v1/stats
func (h *StatsHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, response.Stats{
		Players: response.PlayerStats{
			Total:     h.players.Count(),
			Connected: len(h.players.ListConnected()),
		},
		Games: response.GameStatsFromRegistry(h.games.Stats()),
	})
}

// Events handles GET /api/v1/events?limit=N
func (h *StatsHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		WriteError(w, apierr.NewEventsUnavailableError())
		return
	}

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteError(w, NewInvalidRequestError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	recent, err := h.events.Recent(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.OK(w, response.EventsFromModel(recent))
}
