package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/seabattle-lobby/internal/dependencies/clock"
	"github.com/mcoot/seabattle-lobby/internal/dependencies/idgen"
	"github.com/mcoot/seabattle-lobby/internal/model"
)

// Stats summarises the rooms in a GameRegistry
type Stats struct {
	Total        int
	Waiting      int
	PlacingShips int
	InProgress   int
	Finished     int
}

// GameRegistry is the thread-safe store of game rooms.
//
// Membership checks are linear scans over all rooms; the registry is expected
// to hold tens to low hundreds of rooms.
type GameRegistry struct {
	mu    sync.Mutex
	rooms map[model.RoomID]*model.GameRoom

	clock  clock.Clock
	ids    idgen.Generator
	logger *slog.Logger
}

// NewGameRegistry creates an empty GameRegistry
func NewGameRegistry(clk clock.Clock, ids idgen.Generator, logger *slog.Logger) *GameRegistry {
	return &GameRegistry{
		rooms:  make(map[model.RoomID]*model.GameRoom),
		clock:  clk,
		ids:    ids,
		logger: logger.With(slog.String("component", "games")),
	}
}

// CreateGame opens a waiting room with the player in the first slot.
// It fails with ErrAlreadyInGame if the player already occupies a room.
func (r *GameRegistry) CreateGame(playerID model.PlayerID, name string) (*model.GameRoom, error) {
	r.mu.Lock()
	if r.roomOfLocked(playerID) != nil {
		r.mu.Unlock()
		r.logger.Info("create rejected, player already in a game",
			slog.String("player_id", string(playerID)))
		return nil, model.ErrAlreadyInGame
	}

	room := &model.GameRoom{
		ID:          model.RoomID(r.ids.NewID()),
		Name:        name,
		Player1ID:   playerID,
		Status:      model.GameStatusWaiting,
		CurrentTurn: model.TurnPlayer1,
		CreatedAt:   r.clock.Now(),
	}
	r.rooms[room.ID] = room
	result := room.Clone()
	r.mu.Unlock()

	r.logger.Info("game created",
		slog.String("game_id", string(room.ID)),
		slog.String("name", name),
		slog.String("player_id", string(playerID)))
	return result, nil
}

// JoinGame puts the player into the second slot of a waiting room and moves
// the room to the ship placement stage
func (r *GameRegistry) JoinGame(playerID model.PlayerID, roomID model.RoomID) (*model.GameRoom, error) {
	r.mu.Lock()
	if r.roomOfLocked(playerID) != nil {
		r.mu.Unlock()
		return nil, model.ErrAlreadyInGame
	}

	room, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return nil, model.ErrGameNotFound
	}
	if room.Status != model.GameStatusWaiting {
		r.mu.Unlock()
		return nil, model.ErrGameNotWaiting
	}
	if room.IsFull() {
		r.mu.Unlock()
		return nil, model.ErrGameFull
	}

	now := r.clock.Now()
	room.Player2ID = playerID
	room.Status = model.GameStatusPlacingShips
	room.StartedAt = &now
	result := room.Clone()
	r.mu.Unlock()

	r.logger.Info("player joined game",
		slog.String("game_id", string(roomID)),
		slog.String("player_id", string(playerID)))
	return result, nil
}

// ListAvailable returns the rooms that can currently be joined, in no
// particular order
func (r *GameRegistry) ListAvailable() []*model.GameRoom {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*model.GameRoom, 0)
	for _, room := range r.rooms {
		if room.IsJoinable() {
			result = append(result, room.Clone())
		}
	}
	return result
}

// ListAll returns every room, in no particular order
func (r *GameRegistry) ListAll() []*model.GameRoom {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*model.GameRoom, 0, len(r.rooms))
	for _, room := range r.rooms {
		result = append(result, room.Clone())
	}
	return result
}

// Get returns a copy of the room
func (r *GameRegistry) Get(roomID model.RoomID) (*model.GameRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return room.Clone(), nil
}

// Remove deletes the room and reports whether it existed
func (r *GameRegistry) Remove(roomID model.RoomID) bool {
	r.mu.Lock()
	_, ok := r.rooms[roomID]
	delete(r.rooms, roomID)
	r.mu.Unlock()

	if ok {
		r.logger.Info("game removed", slog.String("game_id", string(roomID)))
	} else {
		r.logger.Debug("game not found for removal", slog.String("game_id", string(roomID)))
	}
	return ok
}

// HasPlayer reports whether the player occupies any room
func (r *GameRegistry) HasPlayer(playerID model.PlayerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomOfLocked(playerID) != nil
}

// RoomOf returns the room the player occupies
func (r *GameRegistry) RoomOf(playerID model.PlayerID) (*model.GameRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room := r.roomOfLocked(playerID)
	if room == nil {
		return nil, model.ErrGameNotFound
	}
	return room.Clone(), nil
}

// IsPlayerInRoom reports whether the player occupies the given room
func (r *GameRegistry) IsPlayerInRoom(playerID model.PlayerID, roomID model.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	return ok && room.HasPlayer(playerID)
}

// OpponentOf returns the other occupant of the room. The second result is
// false if the player is not in that room. The opponent may be empty while
// the room is still waiting.
func (r *GameRegistry) OpponentOf(roomID model.RoomID, playerID model.PlayerID) (model.PlayerID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return "", false
	}
	return room.OpponentOf(playerID)
}

// SetStatus moves the room to the given status, stamping the finish time
// when it becomes finished
func (r *GameRegistry) SetStatus(roomID model.RoomID, status model.GameStatus) error {
	if !status.Valid() {
		return model.ErrInvalidStatus
	}

	r.mu.Lock()
	room, ok := r.rooms[roomID]
	if ok {
		room.Status = status
		if status == model.GameStatusFinished {
			now := r.clock.Now()
			room.FinishedAt = &now
		}
	}
	r.mu.Unlock()

	if !ok {
		return model.ErrGameNotFound
	}
	r.logger.Info("game status changed",
		slog.String("game_id", string(roomID)),
		slog.String("status", string(status)))
	return nil
}

// SetTurn records which slot moves next
func (r *GameRegistry) SetTurn(roomID model.RoomID, turn model.PlayerTurn) error {
	if !turn.Valid() {
		return model.ErrInvalidTurn
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return model.ErrGameNotFound
	}
	room.CurrentTurn = turn
	return nil
}

// SetWinner records the winner and finishes the room
func (r *GameRegistry) SetWinner(roomID model.RoomID, winnerID model.PlayerID) error {
	r.mu.Lock()
	room, ok := r.rooms[roomID]
	if ok {
		now := r.clock.Now()
		room.WinnerID = winnerID
		room.Status = model.GameStatusFinished
		room.FinishedAt = &now
	}
	r.mu.Unlock()

	if !ok {
		return model.ErrGameNotFound
	}
	r.logger.Info("game won",
		slog.String("game_id", string(roomID)),
		slog.String("winner_id", string(winnerID)))
	return nil
}

// SweepFinishedOlderThan removes finished rooms whose finish time is earlier
// than now minus age, returning the number removed
func (r *GameRegistry) SweepFinishedOlderThan(age time.Duration) int {
	r.mu.Lock()
	var removed []model.RoomID
	for id, room := range r.rooms {
		if room.Status == model.GameStatusFinished && room.FinishedAt != nil && r.clock.Since(*room.FinishedAt) > age {
			removed = append(removed, id)
			delete(r.rooms, id)
		}
	}
	r.mu.Unlock()

	for _, id := range removed {
		r.logger.Info("old game swept", slog.String("game_id", string(id)))
	}
	if len(removed) > 0 {
		r.logger.Info("old games cleaned up", slog.Int("removed", len(removed)))
	}
	return len(removed)
}

// Stats counts rooms by status
func (r *GameRegistry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := Stats{Total: len(r.rooms)}
	for _, room := range r.rooms {
		switch room.Status {
		case model.GameStatusWaiting:
			stats.Waiting++
		case model.GameStatusPlacingShips:
			stats.PlacingShips++
		case model.GameStatusInProgress:
			stats.InProgress++
		case model.GameStatusFinished:
			stats.Finished++
		}
	}
	return stats
}

// roomOfLocked finds the room occupied by the player; r.mu must be held
func (r *GameRegistry) roomOfLocked(playerID model.PlayerID) *model.GameRoom {
	for _, room := range r.rooms {
		if room.HasPlayer(playerID) {
			return room
		}
	}
	return nil
}
