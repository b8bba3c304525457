package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/seabattle-lobby/internal/api/request"
	"github.com/mcoot/seabattle-lobby/internal/api/response"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Inspect and manage game rooms through the admin API",
	}

	cmd.AddCommand(newGameListCmd())
	cmd.AddCommand(newGameGetCmd())
	cmd.AddCommand(newGameUpdateCmd())
	cmd.AddCommand(newGameDeleteCmd())
	cmd.AddCommand(newGameNotifyCmd())

	return cmd
}

func gamePath(id string) string {
	return "/api/v1/games/" + url.PathEscape(id)
}

func newGameListCmd() *cobra.Command {
	var available bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List game rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/games"
			if available {
				path += "?available=true"
			}

			var result []response.Game
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&available, "available", false, "Only rooms waiting for an opponent")

	return cmd
}

func newGameGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <game id>",
		Short: "Show one game room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Game
			if err := client.Get(cmd.Context(), gamePath(args[0]), &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newGameUpdateCmd() *cobra.Command {
	var status, turn, winner string

	cmd := &cobra.Command{
		Use:   "update <game id>",
		Short: "Set a room's status, turn or winner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req request.UpdateGameRequest
			if cmd.Flags().Changed("status") {
				req.Status = &status
			}
			if cmd.Flags().Changed("turn") {
				req.Turn = &turn
			}
			if cmd.Flags().Changed("winner") {
				req.WinnerID = &winner
			}
			if req.IsEmpty() {
				return errors.New("one of --status, --turn or --winner is required")
			}

			var result response.Game
			if err := client.Patch(cmd.Context(), gamePath(args[0]), req, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "waiting, placing_ships, in_progress or finished")
	cmd.Flags().StringVar(&turn, "turn", "", "player1 or player2")
	cmd.Flags().StringVar(&winner, "winner", "", "Winning player id (finishes the game)")

	return cmd
}

func newGameDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <game id>",
		Short: "Remove a game room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), gamePath(args[0])); err != nil {
				return err
			}

			newOutput(cmd).PrintMessage(fmt.Sprintf("Deleted game %s", args[0]))
			return nil
		},
	}
}

func newGameNotifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify <game id> <json>",
		Short: "Send a JSON message to both players in a room",
		Long: `Send a JSON object to both occupants of a room. The object must carry
an "action" field, for example:

  seactl game notify room-1 '{"action":"game_event","shot":"B4"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := json.RawMessage(args[1])
			if !json.Valid(payload) {
				return errors.New("message must be valid JSON")
			}

			if err := client.Post(cmd.Context(), gamePath(args[0])+"/notify", payload, nil); err != nil {
				return err
			}

			newOutput(cmd).PrintMessage(fmt.Sprintf("Notified game %s", args[0]))
			return nil
		},
	}
}
