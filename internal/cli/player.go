package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/seabattle-lobby/internal/api/response"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Inspect and manage connected players through the admin API",
	}

	cmd.AddCommand(newPlayerListCmd())
	cmd.AddCommand(newPlayerGetCmd())
	cmd.AddCommand(newPlayerMessageCmd())
	cmd.AddCommand(newPlayerKickCmd())

	return cmd
}

func playerPath(id string) string {
	return "/api/v1/players/" + url.PathEscape(id)
}

func newPlayerListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List players",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/players"
			if all {
				path += "?all=true"
			}

			var result []response.Player
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include players whose connection has dropped")

	return cmd
}

func newPlayerGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <player id>",
		Short: "Show one player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Player
			if err := client.Get(cmd.Context(), playerPath(args[0]), &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newPlayerMessageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "message <player id> <json>",
		Short: "Send a JSON message to one player",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := json.RawMessage(args[1])
			if !json.Valid(payload) {
				return errors.New("message must be valid JSON")
			}

			if err := client.Post(cmd.Context(), playerPath(args[0])+"/message", payload, nil); err != nil {
				return err
			}

			newOutput(cmd).PrintMessage(fmt.Sprintf("Sent message to %s", args[0]))
			return nil
		},
	}
}

func newPlayerKickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kick <player id>",
		Short: "Disconnect a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), playerPath(args[0])); err != nil {
				return err
			}

			newOutput(cmd).PrintMessage(fmt.Sprintf("Disconnected %s", args[0]))
			return nil
		},
	}
}
