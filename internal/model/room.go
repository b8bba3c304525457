package model

import "time"

// RoomID uniquely identifies a game room
type RoomID string

// GameStatus is the lifecycle stage of a room
type GameStatus string

const (
	GameStatusWaiting      GameStatus = "waiting"       // One player, open for joining
	GameStatusPlacingShips GameStatus = "placing_ships" // Both players present, placing fleets
	GameStatusInProgress   GameStatus = "in_progress"   // Shots being exchanged
	GameStatusFinished     GameStatus = "finished"      // Winner decided or game ended
)

// Valid reports whether s is one of the known statuses
func (s GameStatus) Valid() bool {
	switch s {
	case GameStatusWaiting, GameStatusPlacingShips, GameStatusInProgress, GameStatusFinished:
		return true
	}
	return false
}

// PlayerTurn marks which slot moves next
type PlayerTurn string

const (
	TurnPlayer1 PlayerTurn = "player1"
	TurnPlayer2 PlayerTurn = "player2"
)

// Valid reports whether t is one of the known turns
func (t PlayerTurn) Valid() bool {
	return t == TurnPlayer1 || t == TurnPlayer2
}

// GameRoom is a session pairing up to two players
type GameRoom struct {
	ID          RoomID
	Name        string
	Player1ID   PlayerID // Creator; always set
	Player2ID   PlayerID // Empty until someone joins
	Status      GameStatus
	CurrentTurn PlayerTurn
	CreatedAt   time.Time
	StartedAt   *time.Time // Set when the second player joins
	FinishedAt  *time.Time // Set when status becomes finished
	WinnerID    PlayerID   // Empty unless a winner was declared
}

// IsFull reports whether both player slots are occupied
func (r *GameRoom) IsFull() bool {
	return r.Player1ID != "" && r.Player2ID != ""
}

// IsJoinable reports whether the room accepts a second player
func (r *GameRoom) IsJoinable() bool {
	return r.Status == GameStatusWaiting && !r.IsFull()
}

// HasPlayer reports whether the player occupies either slot
func (r *GameRoom) HasPlayer(id PlayerID) bool {
	if id == "" {
		return false
	}
	return r.Player1ID == id || r.Player2ID == id
}

// OpponentOf returns the other occupied slot, or false if id is not in the room
func (r *GameRoom) OpponentOf(id PlayerID) (PlayerID, bool) {
	switch {
	case id == "":
		return "", false
	case r.Player1ID == id:
		return r.Player2ID, true
	case r.Player2ID == id:
		return r.Player1ID, true
	}
	return "", false
}

// Occupants returns the ids of the occupied slots
func (r *GameRoom) Occupants() []PlayerID {
	ids := make([]PlayerID, 0, 2)
	if r.Player1ID != "" {
		ids = append(ids, r.Player1ID)
	}
	if r.Player2ID != "" {
		ids = append(ids, r.Player2ID)
	}
	return ids
}

// Clone returns a deep copy of the room
func (r *GameRoom) Clone() *GameRoom {
	c := *r
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
