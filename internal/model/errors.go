package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound     = errors.New("player not found")
	ErrPlayerNotConnected = errors.New("player is not connected")

	// Game room errors
	ErrGameNotFound   = errors.New("game not found")
	ErrAlreadyInGame  = errors.New("player is already in a game")
	ErrGameFull       = errors.New("game is full")
	ErrGameNotWaiting = errors.New("game is not accepting players")
	ErrInvalidStatus  = errors.New("invalid game status")
	ErrInvalidTurn    = errors.New("invalid player turn")

	// Protocol errors
	ErrMalformedCommand = errors.New("malformed command")
	ErrFrameTooLarge    = errors.New("frame exceeds maximum size")
	ErrFrameLineBreak   = errors.New("frame contains a line break")
)
