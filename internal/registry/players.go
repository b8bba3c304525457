package registry

import (
	"log/slog"
	"sync"

	"github.com/mcoot/seabattle-lobby/internal/dependencies/clock"
	"github.com/mcoot/seabattle-lobby/internal/dependencies/idgen"
	"github.com/mcoot/seabattle-lobby/internal/model"
)

// PlayerRegistry is the thread-safe store of connected players
type PlayerRegistry struct {
	mu      sync.Mutex
	players map[model.PlayerID]*model.Player

	clock  clock.Clock
	ids    idgen.Generator
	logger *slog.Logger
}

// NewPlayerRegistry creates an empty PlayerRegistry
func NewPlayerRegistry(clk clock.Clock, ids idgen.Generator, logger *slog.Logger) *PlayerRegistry {
	return &PlayerRegistry{
		players: make(map[model.PlayerID]*model.Player),
		clock:   clk,
		ids:     ids,
		logger:  logger.With(slog.String("component", "players")),
	}
}

// Add registers a new player owning conn
func (r *PlayerRegistry) Add(conn model.Connection) *model.Player {
	player := &model.Player{
		ID:          model.PlayerID(r.ids.NewID()),
		Name:        model.DefaultPlayerName,
		Conn:        conn,
		ConnectedAt: r.clock.Now(),
	}

	r.mu.Lock()
	r.players[player.ID] = player
	count := len(r.players)
	r.mu.Unlock()

	r.logger.Info("player added",
		slog.String("player_id", string(player.ID)),
		slog.String("remote_addr", conn.RemoteAddr()),
		slog.Int("total_players", count))

	clone := *player
	return &clone
}

// Remove deletes the player and closes its connection.
// It reports whether the player was registered.
func (r *PlayerRegistry) Remove(id model.PlayerID) bool {
	r.mu.Lock()
	player, ok := r.players[id]
	if ok {
		delete(r.players, id)
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Debug("player not found for removal", slog.String("player_id", string(id)))
		return false
	}

	// Close outside the lock; a slow peer must not stall the registry
	if player.Conn != nil {
		if err := player.Conn.Close(); err != nil {
			r.logger.Debug("error closing player connection",
				slog.String("player_id", string(id)),
				slog.Any("error", err))
		}
	}

	r.logger.Info("player removed", slog.String("player_id", string(id)))
	return true
}

// Get returns a copy of the player record
func (r *PlayerRegistry) Get(id model.PlayerID) (*model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	clone := *player
	return &clone, nil
}

// Exists reports whether the player is registered
func (r *PlayerRegistry) Exists(id model.PlayerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.players[id]
	return ok
}

// IsConnected reports whether the player is registered with a live connection
func (r *PlayerRegistry) IsConnected(id model.PlayerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[id]
	return ok && player.IsConnected()
}

// ListConnected returns a snapshot of players whose connection is live.
// Stale entries are skipped but left in place for SweepDisconnected.
func (r *PlayerRegistry) ListConnected() []*model.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*model.Player, 0, len(r.players))
	for _, player := range r.players {
		if player.IsConnected() {
			clone := *player
			result = append(result, &clone)
		}
	}
	return result
}

// ListAll returns a snapshot of every registered player
func (r *PlayerRegistry) ListAll() []*model.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*model.Player, 0, len(r.players))
	for _, player := range r.players {
		clone := *player
		result = append(result, &clone)
	}
	return result
}

// Count returns the number of registered players
func (r *PlayerRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// UpdateName sets the player's display name; names need not be unique
func (r *PlayerRegistry) UpdateName(id model.PlayerID, name string) error {
	r.mu.Lock()
	player, ok := r.players[id]
	if ok {
		player.Name = name
	}
	r.mu.Unlock()

	if !ok {
		return model.ErrPlayerNotFound
	}
	r.logger.Info("player renamed",
		slog.String("player_id", string(id)),
		slog.String("name", name))
	return nil
}

// SweepDisconnected removes every player whose connection is no longer live
// and returns how many were removed
func (r *PlayerRegistry) SweepDisconnected() int {
	r.mu.Lock()
	var dead []*model.Player
	for id, player := range r.players {
		if !player.IsConnected() {
			dead = append(dead, player)
			delete(r.players, id)
		}
	}
	r.mu.Unlock()

	for _, player := range dead {
		if player.Conn != nil {
			_ = player.Conn.Close()
		}
		r.logger.Info("disconnected player swept", slog.String("player_id", string(player.ID)))
	}
	if len(dead) > 0 {
		r.logger.Info("disconnected players cleaned up", slog.Int("removed", len(dead)))
	}
	return len(dead)
}
