package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/seabattle-lobby/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodePlayerNotFound    = "PLAYER_NOT_FOUND"
	CodePlayerOffline     = "PLAYER_NOT_CONNECTED"
	CodeGameNotFound      = "GAME_NOT_FOUND"
	CodeAlreadyInGame     = "ALREADY_IN_GAME"
	CodeGameFull          = "GAME_FULL"
	CodeGameNotWaiting    = "GAME_NOT_WAITING"
	CodeInvalidStatus     = "INVALID_STATUS"
	CodeInvalidTurn       = "INVALID_TURN"
	CodeEventsUnavailable = "EVENTS_UNAVAILABLE"
	CodeInternalError     = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrPlayerNotConnected):
		return &httpError{http.StatusConflict, APIError{CodePlayerOffline, "Player is not connected"}}
	case errors.Is(err, model.ErrGameNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeGameNotFound, "Game not found"}}
	case errors.Is(err, model.ErrAlreadyInGame):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInGame, "Player is already in a game"}}
	case errors.Is(err, model.ErrGameFull):
		return &httpError{http.StatusConflict, APIError{CodeGameFull, "Game is full"}}
	case errors.Is(err, model.ErrGameNotWaiting):
		return &httpError{http.StatusConflict, APIError{CodeGameNotWaiting, "Game is not accepting players"}}
	case errors.Is(err, model.ErrInvalidStatus):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidStatus, "Unknown game status"}}
	case errors.Is(err, model.ErrInvalidTurn):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidTurn, "Turn must be player1 or player2"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewEventsUnavailableError reports that no readable event store is configured
func NewEventsUnavailableError() error {
	return &httpError{http.StatusNotImplemented, APIError{CodeEventsUnavailable, "Event history is not available"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
