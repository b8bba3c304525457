package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mcoot/seabattle-lobby/internal/api/response"
	"github.com/mcoot/seabattle-lobby/internal/protocol"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
	errW   io.Writer
}

// NewOutput creates a new Output formatter writing to w and errW
func NewOutput(format string, w, errW io.Writer) *Output {
	return &Output{format: format, w: w, errW: errW}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errW, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errW, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

// PrintFrame outputs a raw lobby frame as it arrived
func (o *Output) PrintFrame(f Frame) {
	if o.format == "json" {
		_, _ = fmt.Fprintln(o.w, string(f.Raw))
		return
	}
	_, _ = fmt.Fprintf(o.w, "[%s] %s: %s\n", time.Now().Format("15:04:05"), f.Action, string(f.Raw))
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Health:
		o.printf("Status: %s\n", v.Status)
	case response.Stats:
		o.printStats(v)
	case response.Game:
		o.printGame(v)
	case []response.Game:
		o.printGames(v)
	case response.Player:
		o.printPlayer(v)
	case []response.Player:
		o.printPlayers(v)
	case []response.Event:
		o.printEvents(v)
	case protocol.GamesListMessage:
		o.printGamesList(v)
	case protocol.GameCreatedMessage:
		o.printf("Created game %q (%s)\n", v.GameName, v.GameID)
	case protocol.GameJoinedMessage:
		o.printf("Joined game %s against %s\n", v.GameID, v.OpponentID)
		if v.YourTurn {
			o.printf("Your turn\n")
		}
	case protocol.PlayerJoinedMessage:
		o.printf("Player %s joined game %s\n", v.OpponentID, v.GameID)
	case protocol.NameSetMessage:
		o.printf("Name set to %s\n", v.Name)
	case protocol.PongMessage:
		o.printf("Pong (server time %s)\n", time.UnixMilli(v.Timestamp).UTC().Format(time.RFC3339Nano))
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

func (o *Output) printStats(s response.Stats) {
	o.printf("Players: %d (%d connected)\n", s.Players.Total, s.Players.Connected)
	o.printf("Games: %d\n", s.Games.Total)
	o.printf("  waiting:       %d\n", s.Games.Waiting)
	o.printf("  placing ships: %d\n", s.Games.PlacingShips)
	o.printf("  in progress:   %d\n", s.Games.InProgress)
	o.printf("  finished:      %d\n", s.Games.Finished)
}

func (o *Output) printGame(g response.Game) {
	o.printf("Game: %s (%s)\n", g.Name, g.ID)
	o.printf("Status: %s\n", g.Status)
	o.printf("Player 1: %s\n", g.Player1ID)
	if g.Player2ID != nil {
		o.printf("Player 2: %s\n", *g.Player2ID)
	}
	o.printf("Turn: %s\n", g.CurrentTurn)
	if g.WinnerID != nil {
		o.printf("Winner: %s\n", *g.WinnerID)
	}
	o.printf("Created: %s\n", g.CreatedAt.Format(time.RFC3339))
}

func (o *Output) printGames(games []response.Game) {
	if len(games) == 0 {
		o.printf("No games\n")
		return
	}
	for _, g := range games {
		player2 := "-"
		if g.Player2ID != nil {
			player2 = *g.Player2ID
		}
		o.printf("%s  %-20s %-14s %s vs %s\n", g.ID, g.Name, g.Status, g.Player1ID, player2)
	}
}

func (o *Output) printPlayer(p response.Player) {
	state := "disconnected"
	if p.Connected {
		state = "connected"
	}
	o.printf("Player: %s (%s)\n", p.Name, p.ID)
	o.printf("State: %s\n", state)
	if p.Transport != "" {
		o.printf("Transport: %s from %s\n", p.Transport, p.RemoteAddr)
	}
	o.printf("Connected at: %s\n", p.ConnectedAt.Format(time.RFC3339))
}

func (o *Output) printPlayers(players []response.Player) {
	if len(players) == 0 {
		o.printf("No players\n")
		return
	}
	for _, p := range players {
		o.printf("%s  %-20s %s\n", p.ID, p.Name, p.Transport)
	}
}

func (o *Output) printEvents(events []response.Event) {
	for _, e := range events {
		o.printf("[%s] %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Type)
		if e.PlayerID != "" {
			o.printf(" player=%s", e.PlayerID)
		}
		if e.GameID != "" {
			o.printf(" game=%s", e.GameID)
		}
		if e.Detail != "" {
			o.printf(" %s", e.Detail)
		}
		o.printf("\n")
	}
}

func (o *Output) printGamesList(m protocol.GamesListMessage) {
	if len(m.Games) == 0 {
		o.printf("No open games\n")
		return
	}
	for _, g := range m.Games {
		creator := g.CreatorName
		if creator == "" {
			creator = string(g.CreatorID)
		}
		o.printf("%s  %-20s created by %s\n", g.ID, g.Name, creator)
	}
}
