package model

import "time"

// EventType identifies the type of lobby event
type EventType string

const (
	EventPlayerConnected    EventType = "player_connected"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventNameSet            EventType = "name_set"
	EventGameCreated        EventType = "game_created"
	EventGameJoined         EventType = "game_joined"
	EventGameRemoved        EventType = "game_removed"
	EventGamesSwept         EventType = "games_swept"
)

// Event records something that happened in the lobby
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	PlayerID  PlayerID  `json:"player_id,omitempty"`
	GameID    RoomID    `json:"game_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}
