package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/seabattle-lobby/internal/model"
)

// PlayerSource is the view of the player registry the dispatcher needs
type PlayerSource interface {
	Get(id model.PlayerID) (*model.Player, error)
	ListConnected() []*model.Player
}

// Config holds dispatcher settings
type Config struct {
	// MaxConcurrentSends bounds the goroutines used by one fan-out; 0 means unbounded
	MaxConcurrentSends int
}

// DefaultConfig returns the default dispatcher configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrentSends: 64,
	}
}

// Dispatcher delivers outbound frames to players.
// Delivery is best effort: failures are logged and dropped, never retried.
type Dispatcher struct {
	players PlayerSource
	cfg     Config
	logger  *slog.Logger
}

// New creates a Dispatcher over the given players
func New(players PlayerSource, cfg Config, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		players: players,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "dispatcher")),
	}
}

// Encode turns a payload into a frame. Byte slices and strings are used
// verbatim unless they span several lines, in which case they must be JSON
// and are compacted onto one line. Anything else is JSON encoded.
func Encode(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case []byte:
		return singleLine(p)
	case string:
		return singleLine([]byte(p))
	case json.RawMessage:
		return singleLine(p)
	}
	frame, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return frame, nil
}

func singleLine(raw []byte) ([]byte, error) {
	if !bytes.ContainsAny(bytes.TrimRight(raw, "\r\n"), "\r\n") {
		return raw, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("encode payload: %w", model.ErrFrameLineBreak)
	}
	return buf.Bytes(), nil
}

// SendTo writes the payload to one player and reports whether it was delivered
func (d *Dispatcher) SendTo(ctx context.Context, id model.PlayerID, payload any) bool {
	frame, err := Encode(payload)
	if err != nil {
		d.logger.Error("send dropped, payload not encodable",
			slog.String("player_id", string(id)),
			slog.Any("error", err))
		return false
	}
	return d.sendFrame(ctx, id, frame)
}

// Broadcast writes the payload to every connected player not in exclude.
// It returns once every send has finished and reports how many succeeded.
func (d *Dispatcher) Broadcast(ctx context.Context, payload any, exclude ...model.PlayerID) int {
	frame, err := Encode(payload)
	if err != nil {
		d.logger.Error("broadcast dropped, payload not encodable", slog.Any("error", err))
		return 0
	}

	skip := make(map[model.PlayerID]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	var targets []*model.Player
	for _, player := range d.players.ListConnected() {
		if _, ok := skip[player.ID]; ok {
			continue
		}
		targets = append(targets, player)
	}

	delivered := d.fanOut(len(targets), func(i int) bool {
		return d.deliver(ctx, targets[i], frame)
	})
	d.logger.Debug("broadcast complete",
		slog.Int("targets", len(targets)),
		slog.Int("delivered", delivered))
	return delivered
}

// SendToMany writes the payload to each listed player, ignoring duplicates.
// Like Broadcast it waits for every send and reports how many succeeded.
func (d *Dispatcher) SendToMany(ctx context.Context, ids []model.PlayerID, payload any) int {
	frame, err := Encode(payload)
	if err != nil {
		d.logger.Error("send dropped, payload not encodable", slog.Any("error", err))
		return 0
	}

	seen := make(map[model.PlayerID]struct{}, len(ids))
	unique := make([]model.PlayerID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	return d.fanOut(len(unique), func(i int) bool {
		return d.sendFrame(ctx, unique[i], frame)
	})
}

// fanOut runs send for indices [0, n) concurrently and counts successes.
// Sends never return errors; the group only acts as a barrier.
func (d *Dispatcher) fanOut(n int, send func(i int) bool) int {
	if n == 0 {
		return 0
	}
	if n == 1 {
		if send(0) {
			return 1
		}
		return 0
	}

	var g errgroup.Group
	if d.cfg.MaxConcurrentSends > 0 {
		g.SetLimit(d.cfg.MaxConcurrentSends)
	}

	var delivered atomic.Int64
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if send(i) {
				delivered.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(delivered.Load())
}

func (d *Dispatcher) sendFrame(ctx context.Context, id model.PlayerID, frame []byte) bool {
	player, err := d.players.Get(id)
	if err != nil {
		d.logger.Debug("send dropped, player not found", slog.String("player_id", string(id)))
		return false
	}
	return d.deliver(ctx, player, frame)
}

func (d *Dispatcher) deliver(ctx context.Context, player *model.Player, frame []byte) bool {
	if err := ctx.Err(); err != nil {
		d.logger.Debug("send dropped, context done",
			slog.String("player_id", string(player.ID)),
			slog.Any("error", err))
		return false
	}
	if !player.IsConnected() {
		d.logger.Debug("send dropped, player not connected", slog.String("player_id", string(player.ID)))
		return false
	}
	if err := player.Conn.WriteFrame(frame); err != nil {
		d.logger.Warn("send failed",
			slog.String("player_id", string(player.ID)),
			slog.Any("error", err))
		return false
	}
	return true
}
