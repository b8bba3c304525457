package response

import (
	"time"

	"github.com/mcoot/seabattle-lobby/internal/model"
	"github.com/mcoot/seabattle-lobby/internal/registry"
)

// Player represents a player in API responses
type Player struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Transport   string    `json:"transport,omitempty"`
	RemoteAddr  string    `json:"remote_addr,omitempty"`
	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connected_at"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	resp := Player{
		ID:          string(p.ID),
		Name:        p.Name,
		Connected:   p.IsConnected(),
		ConnectedAt: p.ConnectedAt,
	}
	if p.Conn != nil {
		resp.Transport = p.Conn.Transport()
		resp.RemoteAddr = p.Conn.RemoteAddr()
	}
	return resp
}

// PlayersFromModel converts a slice of players
func PlayersFromModel(players []*model.Player) []Player {
	result := make([]Player, len(players))
	for i, p := range players {
		result[i] = PlayerFromModel(p)
	}
	return result
}

// Game represents a game room in API responses
type Game struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Player1ID   string     `json:"player1_id"`
	Player2ID   *string    `json:"player2_id"`
	Status      string     `json:"status"`
	CurrentTurn string     `json:"current_turn"`
	WinnerID    *string    `json:"winner_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// GameFromModel converts a model.GameRoom to a response Game
func GameFromModel(g *model.GameRoom) Game {
	var player2 *string
	if g.Player2ID != "" {
		p := string(g.Player2ID)
		player2 = &p
	}
	var winner *string
	if g.WinnerID != "" {
		w := string(g.WinnerID)
		winner = &w
	}
	return Game{
		ID:          string(g.ID),
		Name:        g.Name,
		Player1ID:   string(g.Player1ID),
		Player2ID:   player2,
		Status:      string(g.Status),
		CurrentTurn: string(g.CurrentTurn),
		WinnerID:    winner,
		CreatedAt:   g.CreatedAt,
		StartedAt:   g.StartedAt,
		FinishedAt:  g.FinishedAt,
	}
}

// GamesFromModel converts a slice of rooms
func GamesFromModel(rooms []*model.GameRoom) []Game {
	result := make([]Game, len(rooms))
	for i, g := range rooms {
		result[i] = GameFromModel(g)
	}
	return result
}

// PlayerStats counts players
type PlayerStats struct {
	Total     int `json:"total"`
	Connected int `json:"connected"`
}

// GameStats counts rooms by status
type GameStats struct {
	Total        int `json:"total"`
	Waiting      int `json:"waiting"`
	PlacingShips int `json:"placing_ships"`
	InProgress   int `json:"in_progress"`
	Finished     int `json:"finished"`
}

// GameStatsFromRegistry converts registry.Stats
func GameStatsFromRegistry(s registry.Stats) GameStats {
	return GameStats(s)
}

// Stats is the response for GET /stats
type Stats struct {
	Players PlayerStats `json:"players"`
	Games   GameStats   `json:"games"`
}

// Event is a lobby event in API responses
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	PlayerID  string    `json:"player_id,omitempty"`
	GameID    string    `json:"game_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// EventsFromModel converts a slice of events
func EventsFromModel(events []model.Event) []Event {
	result := make([]Event, len(events))
	for i, e := range events {
		result[i] = Event{
			Type:      string(e.Type),
			Timestamp: e.Timestamp,
			PlayerID:  string(e.PlayerID),
			GameID:    string(e.GameID),
			Detail:    e.Detail,
		}
	}
	return result
}

// Health is the response for GET /health
type Health struct {
	Status string `json:"status"`
}
