package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/seabattle-lobby/internal/api/request"
	"github.com/mcoot/seabattle-lobby/internal/api/response"
	"github.com/mcoot/seabattle-lobby/internal/dependencies/clock"
	"github.com/mcoot/seabattle-lobby/internal/events"
	"github.com/mcoot/seabattle-lobby/internal/model"
	"github.com/mcoot/seabattle-lobby/internal/protocol"
)

// maxNotifyBody caps the payload accepted by POST /games/{id}/notify
const maxNotifyBody = 64 * 1024

// compactJSON puts a validated JSON body on a single line so it travels
// as one frame
func compactJSON(body []byte) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return body
	}
	return buf.Bytes()
}

// GameHandler handles game-room endpoints
type GameHandler struct {
	games    GameStore
	notifier RoomNotifier
	sender   Sender
	sink     events.Sink
	clock    clock.Clock
	logger   *slog.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(
	games GameStore,
	notifier RoomNotifier,
	sender Sender,
	sink events.Sink,
	clock clock.Clock,
	logger *slog.Logger,
) *GameHandler {
	return &GameHandler{
		games:    games,
		notifier: notifier,
		sender:   sender,
		sink:     sink,
		clock:    clock,
		logger:   logger,
	}
}

// List handles GET /api/v1/games
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	var rooms []*model.GameRoom
	if r.URL.Query().Get("available") == "true" {
		rooms = h.games.ListAvailable()
	} else {
		rooms = h.games.ListAll()
	}
	response.OK(w, response.GamesFromModel(rooms))
}

// Get handles GET /api/v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.RoomID(mux.Vars(r)["id"])

	room, err := h.games.Get(id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.OK(w, response.GameFromModel(room))
}

// Update handles PATCH /api/v1/games/{id}
func (h *GameHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := model.RoomID(mux.Vars(r)["id"])

	var req request.UpdateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.IsEmpty() {
		WriteError(w, NewInvalidRequestError("one of status, turn or winner_id is required"))
		return
	}

	// Validate everything before mutating so a bad field changes nothing
	if req.Status != nil && !model.GameStatus(*req.Status).Valid() {
		WriteError(w, model.ErrInvalidStatus)
		return
	}
	if req.Turn != nil && !model.PlayerTurn(*req.Turn).Valid() {
		WriteError(w, model.ErrInvalidTurn)
		return
	}
	if _, err := h.games.Get(id); err != nil {
		WriteError(w, err)
		return
	}

	if req.Status != nil {
		if err := h.games.SetStatus(id, model.GameStatus(*req.Status)); err != nil {
			WriteError(w, err)
			return
		}
	}
	if req.Turn != nil {
		if err := h.games.SetTurn(id, model.PlayerTurn(*req.Turn)); err != nil {
			WriteError(w, err)
			return
		}
	}
	if req.WinnerID != nil {
		if err := h.games.SetWinner(id, model.PlayerID(*req.WinnerID)); err != nil {
			WriteError(w, err)
			return
		}
	}

	room, err := h.games.Get(id)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, response.GameFromModel(room))
}

// Delete handles DELETE /api/v1/games/{id}
func (h *GameHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := model.RoomID(mux.Vars(r)["id"])

	if !h.games.Remove(id) {
		WriteError(w, model.ErrGameNotFound)
		return
	}

	h.sender.Broadcast(r.Context(), protocol.GamesUpdated)
	if h.sink != nil {
		err := h.sink.Publish(r.Context(), model.Event{
			Type:      model.EventGameRemoved,
			Timestamp: h.clock.Now(),
			GameID:    id,
		})
		if err != nil {
			h.logger.Warn("failed to publish event", slog.Any("error", err))
		}
	}

	response.NoContent(w)
}

// Notify handles POST /api/v1/games/{id}/notify, relaying a JSON object to
// both occupants of the room
func (h *GameHandler) Notify(w http.ResponseWriter, r *http.Request) {
	id := model.RoomID(mux.Vars(r)["id"])

	body, err := io.ReadAll(io.LimitReader(r.Body, maxNotifyBody+1))
	if err != nil || len(body) > maxNotifyBody {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		WriteError(w, NewInvalidRequestError("body must be a JSON object"))
		return
	}
	if action, _ := payload["action"].(string); action == "" {
		WriteError(w, NewInvalidRequestError("action is required"))
		return
	}

	if err := h.notifier.NotifyRoom(r.Context(), id, compactJSON(body)); err != nil {
		WriteError(w, err)
		return
	}

	response.Accepted(w)
}
