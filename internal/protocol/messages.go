package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mcoot/seabattle-lobby/internal/model"
)

// GameSummary describes a joinable room in a games_list reply
type GameSummary struct {
	ID          model.RoomID     `json:"id"`
	Name        string           `json:"name"`
	CreatorID   model.PlayerID   `json:"creatorId"`
	CreatorName string           `json:"creatorName,omitempty"`
	Status      model.GameStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// GameCreatedMessage confirms a new room to its creator
type GameCreatedMessage struct {
	Action   string       `json:"action"`
	GameID   model.RoomID `json:"gameId"`
	GameName string       `json:"gameName"`
}

// GamesUpdatedMessage tells clients the list of joinable rooms changed
type GamesUpdatedMessage struct {
	Action string `json:"action"`
}

// GamesListMessage answers get_games
type GamesListMessage struct {
	Action string        `json:"action"`
	Games  []GameSummary `json:"games"`
}

// PlayerJoinedMessage tells a room's creator that an opponent arrived
type PlayerJoinedMessage struct {
	Action     string         `json:"action"`
	OpponentID model.PlayerID `json:"opponentId"`
	GameID     model.RoomID   `json:"gameId"`
}

// GameJoinedMessage confirms a join to the joining player
type GameJoinedMessage struct {
	Action     string         `json:"action"`
	OpponentID model.PlayerID `json:"opponentId"`
	GameID     model.RoomID   `json:"gameId"`
	YourTurn   bool           `json:"yourTurn"`
}

// NameSetMessage confirms a name change
type NameSetMessage struct {
	Action string `json:"action"`
	Name   string `json:"name"`
}

// PongMessage answers ping with the server time in unix milliseconds
type PongMessage struct {
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorMessage reports a rejected command to its sender
type ErrorMessage struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

// NewErrorMessage builds an error reply
func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Action: model.ActionError, Message: message}
}

// GamesUpdated is the broadcast sent whenever rooms are created or filled
var GamesUpdated = GamesUpdatedMessage{Action: model.ActionGamesUpdated}

// DecodeCommand parses one inbound frame. A frame without an action is malformed.
func DecodeCommand(frame []byte) (model.Command, error) {
	var cmd model.Command
	if err := json.Unmarshal(frame, &cmd); err != nil {
		return model.Command{}, fmt.Errorf("%w: %v", model.ErrMalformedCommand, err)
	}
	if cmd.Action == "" {
		return model.Command{}, fmt.Errorf("%w: missing action", model.ErrMalformedCommand)
	}
	return cmd, nil
}

// Error replies shown to players
const (
	msgInternal       = "Internal server error"
	msgMalformed      = "Malformed command"
	msgEmptyName      = "Name cannot be empty"
	msgNameTooLong    = "Name is too long"
	msgUnknownActionF = "Unknown action: %s"
)

// ErrorText maps a domain error to the message sent to the player
func ErrorText(err error) string {
	switch {
	case errors.Is(err, model.ErrAlreadyInGame):
		return "You are already in a game"
	case errors.Is(err, model.ErrGameNotFound):
		return "Game not found"
	case errors.Is(err, model.ErrGameFull):
		return "Game is full"
	case errors.Is(err, model.ErrGameNotWaiting):
		return "Game has already started"
	case errors.Is(err, model.ErrPlayerNotFound):
		return "Player not found"
	case errors.Is(err, model.ErrMalformedCommand):
		return msgMalformed
	default:
		return msgInternal
	}
}
