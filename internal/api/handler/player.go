package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/seabattle-lobby/internal/api/response"
	"github.com/mcoot/seabattle-lobby/internal/model"
)

// PlayerHandler handles player endpoints
type PlayerHandler struct {
	players PlayerStore
	sender  Sender
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(players PlayerStore, sender Sender) *PlayerHandler {
	return &PlayerHandler{
		players: players,
		sender:  sender,
	}
}

// List handles GET /api/v1/players
// Only connected players are listed unless ?all=true is given
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	var players []*model.Player
	if r.URL.Query().Get("all") == "true" {
		players = h.players.ListAll()
	} else {
		players = h.players.ListConnected()
	}
	response.OK(w, response.PlayersFromModel(players))
}

// Get handles GET /api/v1/players/{id}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	player, err := h.players.Get(id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.OK(w, response.PlayerFromModel(player))
}

// Message handles POST /api/v1/players/{id}/message
func (h *PlayerHandler) Message(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	body, err := io.ReadAll(io.LimitReader(r.Body, maxNotifyBody+1))
	if err != nil || len(body) > maxNotifyBody || !json.Valid(body) {
		WriteError(w, NewInvalidRequestError("body must be valid JSON"))
		return
	}

	if _, err := h.players.Get(id); err != nil {
		WriteError(w, err)
		return
	}
	if !h.sender.SendTo(r.Context(), id, compactJSON(body)) {
		WriteError(w, model.ErrPlayerNotConnected)
		return
	}

	response.Accepted(w)
}

// Disconnect handles DELETE /api/v1/players/{id}
func (h *PlayerHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	if !h.players.Remove(id) {
		WriteError(w, model.ErrPlayerNotFound)
		return
	}

	response.NoContent(w)
}
