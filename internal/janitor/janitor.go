package janitor

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/mcoot/seabattle-lobby/internal/dependencies/clock"
	"github.com/mcoot/seabattle-lobby/internal/events"
	"github.com/mcoot/seabattle-lobby/internal/model"
	"github.com/mcoot/seabattle-lobby/internal/registry"
)

// Config holds janitor settings
type Config struct {
	// Interval between sweeps; zero disables the janitor
	Interval time.Duration
	// FinishedGameTTL is how long finished rooms are kept
	FinishedGameTTL time.Duration
}

// DefaultConfig returns sensible defaults for the janitor
func DefaultConfig() Config {
	return Config{
		Interval:        time.Minute,
		FinishedGameTTL: 30 * time.Minute,
	}
}

// Players is the part of the player registry the janitor sweeps
type Players interface {
	SweepDisconnected() int
	Count() int
}

// Games is the part of the game registry the janitor sweeps
type Games interface {
	SweepFinishedOlderThan(age time.Duration) int
	Stats() registry.Stats
}

// Result reports what one sweep removed
type Result struct {
	PlayersRemoved int
	GamesRemoved   int
}

// Janitor periodically removes disconnected players and old finished rooms
type Janitor struct {
	players Players
	games   Games
	sink    events.Sink
	clock   clock.Clock
	cfg     Config
	logger  *slog.Logger
}

// New creates a Janitor
func New(players Players, games Games, sink events.Sink, clock clock.Clock, cfg Config, logger *slog.Logger) *Janitor {
	return &Janitor{
		players: players,
		games:   games,
		sink:    sink,
		clock:   clock,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "janitor")),
	}
}

// Run sweeps on every interval until ctx is cancelled
func (j *Janitor) Run(ctx context.Context) {
	if j.cfg.Interval <= 0 {
		j.logger.Info("janitor disabled")
		return
	}

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	j.logger.Info("janitor started",
		slog.Duration("interval", j.cfg.Interval),
		slog.Duration("finished_game_ttl", j.cfg.FinishedGameTTL))

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopped")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs both sweeps once and logs the registry statistics
func (j *Janitor) Sweep(ctx context.Context) Result {
	result := Result{
		PlayersRemoved: j.players.SweepDisconnected(),
		GamesRemoved:   j.games.SweepFinishedOlderThan(j.cfg.FinishedGameTTL),
	}

	stats := j.games.Stats()
	j.logger.Info("sweep complete",
		slog.Int("players_removed", result.PlayersRemoved),
		slog.Int("games_removed", result.GamesRemoved),
		slog.Int("players", j.players.Count()),
		slog.Int("games", stats.Total),
		slog.Int("games_waiting", stats.Waiting),
		slog.Int("games_placing_ships", stats.PlacingShips),
		slog.Int("games_in_progress", stats.InProgress),
		slog.Int("games_finished", stats.Finished))

	if result.GamesRemoved > 0 && j.sink != nil {
		err := j.sink.Publish(ctx, model.Event{
			Type:      model.EventGamesSwept,
			Timestamp: j.clock.Now(),
			Detail:    strconv.Itoa(result.GamesRemoved),
		})
		if err != nil {
			j.logger.Warn("failed to publish event", slog.Any("error", err))
		}
	}
	return result
}
