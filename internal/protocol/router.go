package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"unicode/utf8"

	"github.com/mcoot/seabattle-lobby/internal/dependencies/clock"
	"github.com/mcoot/seabattle-lobby/internal/events"
	"github.com/mcoot/seabattle-lobby/internal/model"
)

// Players is the view of the player registry the router needs
type Players interface {
	Get(id model.PlayerID) (*model.Player, error)
	UpdateName(id model.PlayerID, name string) error
}

// Games is the view of the game registry the router needs
type Games interface {
	CreateGame(playerID model.PlayerID, name string) (*model.GameRoom, error)
	JoinGame(playerID model.PlayerID, roomID model.RoomID) (*model.GameRoom, error)
	ListAvailable() []*model.GameRoom
	Get(roomID model.RoomID) (*model.GameRoom, error)
}

// Sender delivers outbound payloads
type Sender interface {
	SendTo(ctx context.Context, id model.PlayerID, payload any) bool
	Broadcast(ctx context.Context, payload any, exclude ...model.PlayerID) int
	SendToMany(ctx context.Context, ids []model.PlayerID, payload any) int
}

// Config holds router settings
type Config struct {
	// ReplyOnMalformed sends an error reply for frames that cannot be decoded
	ReplyOnMalformed bool
	// RequireName trims names and rejects ones left empty
	RequireName bool
	// MaxNameLength caps player names, in runes; 0 means no limit
	MaxNameLength int
	// DefaultGameName is used when create_game carries no name
	DefaultGameName string
}

// DefaultConfig returns the default router configuration
func DefaultConfig() Config {
	return Config{
		ReplyOnMalformed: false,
		DefaultGameName:  "New game",
	}
}

// Router turns inbound commands into registry mutations and replies.
// It keeps no state of its own between calls.
type Router struct {
	players Players
	games   Games
	sender  Sender
	sink    events.Sink
	clock   clock.Clock
	cfg     Config
	logger  *slog.Logger
}

// NewRouter creates a Router
func NewRouter(
	players Players,
	games Games,
	sender Sender,
	sink events.Sink,
	clock clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Router {
	return &Router{
		players: players,
		games:   games,
		sender:  sender,
		sink:    sink,
		clock:   clock,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "router")),
	}
}

// Handle processes one frame from the player. It never panics; a failing
// handler results in a generic error reply.
func (r *Router) Handle(ctx context.Context, playerID model.PlayerID, frame []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic handling command",
				slog.Any("error", rec),
				slog.String("stack", string(debug.Stack())),
				slog.String("player_id", string(playerID)))
			r.replyError(ctx, playerID, msgInternal)
		}
	}()

	cmd, err := DecodeCommand(frame)
	if err != nil {
		r.logger.Warn("malformed command",
			slog.String("player_id", string(playerID)),
			slog.Int("size", len(frame)),
			slog.Any("error", err))
		if r.cfg.ReplyOnMalformed {
			r.replyError(ctx, playerID, msgMalformed)
		}
		return
	}

	r.logger.Debug("command received",
		slog.String("player_id", string(playerID)),
		slog.String("action", cmd.Action))

	switch cmd.Action {
	case model.ActionCreateGame:
		r.handleCreateGame(ctx, playerID, cmd)
	case model.ActionGetGames:
		r.handleGetGames(ctx, playerID)
	case model.ActionJoinGame:
		r.handleJoinGame(ctx, playerID, cmd)
	case model.ActionSetName:
		r.handleSetName(ctx, playerID, cmd)
	case model.ActionPing:
		r.sender.SendTo(ctx, playerID, PongMessage{
			Action:    model.ActionPong,
			Timestamp: r.clock.Now().UnixMilli(),
		})
	default:
		r.logger.Warn("unknown action",
			slog.String("player_id", string(playerID)),
			slog.String("action", cmd.Action))
		r.replyError(ctx, playerID, fmt.Sprintf(msgUnknownActionF, cmd.Action))
	}
}

func (r *Router) handleCreateGame(ctx context.Context, playerID model.PlayerID, cmd model.Command) {
	name := strings.TrimSpace(cmd.Data)
	if name == "" {
		name = r.cfg.DefaultGameName
	}

	room, err := r.games.CreateGame(playerID, name)
	if err != nil {
		r.replyError(ctx, playerID, ErrorText(err))
		return
	}

	r.sender.SendTo(ctx, playerID, GameCreatedMessage{
		Action:   model.ActionGameCreated,
		GameID:   room.ID,
		GameName: room.Name,
	})
	r.sender.Broadcast(ctx, GamesUpdated)
	r.publish(ctx, model.Event{
		Type:     model.EventGameCreated,
		PlayerID: playerID,
		GameID:   room.ID,
		Detail:   room.Name,
	})
}

func (r *Router) handleGetGames(ctx context.Context, playerID model.PlayerID) {
	rooms := r.games.ListAvailable()
	games := make([]GameSummary, 0, len(rooms))
	for _, room := range rooms {
		summary := GameSummary{
			ID:        room.ID,
			Name:      room.Name,
			CreatorID: room.Player1ID,
			Status:    room.Status,
			CreatedAt: room.CreatedAt,
		}
		if creator, err := r.players.Get(room.Player1ID); err == nil {
			summary.CreatorName = creator.Name
		}
		games = append(games, summary)
	}

	r.sender.SendTo(ctx, playerID, GamesListMessage{
		Action: model.ActionGamesList,
		Games:  games,
	})
}

func (r *Router) handleJoinGame(ctx context.Context, playerID model.PlayerID, cmd model.Command) {
	roomID := model.RoomID(strings.TrimSpace(cmd.GameID))

	room, err := r.games.JoinGame(playerID, roomID)
	if err != nil {
		r.logger.Info("join rejected",
			slog.String("player_id", string(playerID)),
			slog.String("game_id", string(roomID)),
			slog.Any("error", err))
		r.replyError(ctx, playerID, ErrorText(err))
		return
	}

	r.sender.SendTo(ctx, room.Player1ID, PlayerJoinedMessage{
		Action:     model.ActionPlayerJoined,
		OpponentID: playerID,
		GameID:     room.ID,
	})
	r.sender.SendTo(ctx, playerID, GameJoinedMessage{
		Action:     model.ActionGameJoined,
		OpponentID: room.Player1ID,
		GameID:     room.ID,
		YourTurn:   false,
	})
	r.sender.Broadcast(ctx, GamesUpdated)
	r.publish(ctx, model.Event{
		Type:     model.EventGameJoined,
		PlayerID: playerID,
		GameID:   room.ID,
	})
}

func (r *Router) handleSetName(ctx context.Context, playerID model.PlayerID, cmd model.Command) {
	name := cmd.Data
	if r.cfg.RequireName {
		name = strings.TrimSpace(name)
		if name == "" {
			r.replyError(ctx, playerID, msgEmptyName)
			return
		}
	}
	if r.cfg.MaxNameLength > 0 && utf8.RuneCountInString(name) > r.cfg.MaxNameLength {
		r.replyError(ctx, playerID, msgNameTooLong)
		return
	}

	if err := r.players.UpdateName(playerID, name); err != nil {
		r.replyError(ctx, playerID, ErrorText(err))
		return
	}

	r.sender.SendTo(ctx, playerID, NameSetMessage{
		Action: model.ActionNameSet,
		Name:   name,
	})
	r.publish(ctx, model.Event{
		Type:     model.EventNameSet,
		PlayerID: playerID,
		Detail:   name,
	})
}

// NotifyRoom sends the payload to every occupant of the room
func (r *Router) NotifyRoom(ctx context.Context, roomID model.RoomID, payload any) error {
	room, err := r.games.Get(roomID)
	if err != nil {
		return fmt.Errorf("notify room %s: %w", roomID, err)
	}
	r.sender.SendToMany(ctx, room.Occupants(), payload)
	return nil
}

func (r *Router) replyError(ctx context.Context, playerID model.PlayerID, message string) {
	r.sender.SendTo(ctx, playerID, NewErrorMessage(message))
}

func (r *Router) publish(ctx context.Context, event model.Event) {
	if r.sink == nil {
		return
	}
	event.Timestamp = r.clock.Now()
	if err := r.sink.Publish(ctx, event); err != nil {
		r.logger.Warn("failed to publish event",
			slog.String("type", string(event.Type)),
			slog.Any("error", err))
	}
}
