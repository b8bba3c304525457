package handler

import (
	"context"

	"github.com/mcoot/seabattle-lobby/internal/model"
	"github.com/mcoot/seabattle-lobby/internal/registry"
)

// GameStore is the view of the game registry the handlers need
type GameStore interface {
	ListAll() []*model.GameRoom
	ListAvailable() []*model.GameRoom
	Get(roomID model.RoomID) (*model.GameRoom, error)
	Remove(roomID model.RoomID) bool
	SetStatus(roomID model.RoomID, status model.GameStatus) error
	SetTurn(roomID model.RoomID, turn model.PlayerTurn) error
	SetWinner(roomID model.RoomID, winnerID model.PlayerID) error
	Stats() registry.Stats
}

// PlayerStore is the view of the player registry the handlers need
type PlayerStore interface {
	ListAll() []*model.Player
	ListConnected() []*model.Player
	Get(id model.PlayerID) (*model.Player, error)
	Remove(id model.PlayerID) bool
	Count() int
}

// RoomNotifier pushes payloads to both occupants of a room
type RoomNotifier interface {
	NotifyRoom(ctx context.Context, roomID model.RoomID, payload any) error
}

// Sender pushes payloads to connected players
type Sender interface {
	SendTo(ctx context.Context, id model.PlayerID, payload any) bool
	Broadcast(ctx context.Context, payload any, exclude ...model.PlayerID) int
}
