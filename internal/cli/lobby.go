package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/seabattle-lobby/internal/model"
	"github.com/mcoot/seabattle-lobby/internal/protocol"
)

func newLobbyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lobby",
		Short: "Play in the lobby as a connected player",
	}

	cmd.AddCommand(newLobbyPingCmd())
	cmd.AddCommand(newLobbyGamesCmd())
	cmd.AddCommand(newLobbyCreateCmd())
	cmd.AddCommand(newLobbyJoinCmd())
	cmd.AddCommand(newLobbyNameCmd())
	cmd.AddCommand(newLobbyListenCmd())

	return cmd
}

// withLobby connects, optionally sets the player's name, and runs fn
func withLobby(cmd *cobra.Command, name string, fn func(ctx context.Context, conn *LobbyConn) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	conn, err := DialLobby(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if name != "" {
		if _, err := conn.Call(ctx, model.Command{Action: model.ActionSetName, Data: name}, model.ActionNameSet); err != nil {
			return fmt.Errorf("set name: %w", err)
		}
	}

	return fn(ctx, conn)
}

// follow prints every frame until interrupted or the server disconnects
func follow(cmd *cobra.Command, conn *LobbyConn) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := newOutput(cmd)
	for {
		frame, err := conn.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}
		out.PrintFrame(frame)
	}
}

func newLobbyPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Round-trip a ping to the lobby server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLobby(cmd, "", func(ctx context.Context, conn *LobbyConn) error {
				frame, err := conn.Call(ctx, model.Command{Action: model.ActionPing}, model.ActionPong)
				if err != nil {
					return err
				}
				var pong protocol.PongMessage
				if err := frame.Decode(&pong); err != nil {
					return err
				}
				newOutput(cmd).Print(pong)
				return nil
			})
		},
	}
}

func newLobbyGamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List games waiting for an opponent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLobby(cmd, "", func(ctx context.Context, conn *LobbyConn) error {
				frame, err := conn.Call(ctx, model.Command{Action: model.ActionGetGames}, model.ActionGamesList)
				if err != nil {
					return err
				}
				var list protocol.GamesListMessage
				if err := frame.Decode(&list); err != nil {
					return err
				}
				newOutput(cmd).Print(list)
				return nil
			})
		},
	}
}

func newLobbyCreateCmd() *cobra.Command {
	var name string
	var wait bool

	cmd := &cobra.Command{
		Use:   "create [game name]",
		Short: "Create a game and optionally wait for an opponent",
		Long: `Create a game room. The room stays listed after seactl exits, but the
creator's connection does not; use --wait to stay connected and print
incoming messages such as player_joined until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameName := ""
			if len(args) == 1 {
				gameName = args[0]
			}
			return withLobby(cmd, name, func(ctx context.Context, conn *LobbyConn) error {
				frame, err := conn.Call(ctx, model.Command{Action: model.ActionCreateGame, Data: gameName}, model.ActionGameCreated)
				if err != nil {
					return err
				}
				var created protocol.GameCreatedMessage
				if err := frame.Decode(&created); err != nil {
					return err
				}
				newOutput(cmd).Print(created)

				if wait {
					return follow(cmd, conn)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "as", "", "Set this player name before creating")
	cmd.Flags().BoolVar(&wait, "wait", false, "Stay connected and print incoming messages")

	return cmd
}

func newLobbyJoinCmd() *cobra.Command {
	var name string
	var wait bool

	cmd := &cobra.Command{
		Use:   "join <game id>",
		Short: "Join a waiting game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLobby(cmd, name, func(ctx context.Context, conn *LobbyConn) error {
				frame, err := conn.Call(ctx, model.Command{Action: model.ActionJoinGame, GameID: args[0]}, model.ActionGameJoined)
				if err != nil {
					return err
				}
				var joined protocol.GameJoinedMessage
				if err := frame.Decode(&joined); err != nil {
					return err
				}
				newOutput(cmd).Print(joined)

				if wait {
					return follow(cmd, conn)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "as", "", "Set this player name before joining")
	cmd.Flags().BoolVar(&wait, "wait", false, "Stay connected and print incoming messages")

	return cmd
}

func newLobbyNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "name <name>",
		Short: "Check a display name is accepted by the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLobby(cmd, "", func(ctx context.Context, conn *LobbyConn) error {
				frame, err := conn.Call(ctx, model.Command{Action: model.ActionSetName, Data: args[0]}, model.ActionNameSet)
				if err != nil {
					return err
				}
				var set protocol.NameSetMessage
				if err := frame.Decode(&set); err != nil {
					return err
				}
				newOutput(cmd).Print(set)
				return nil
			})
		},
	}
}

func newLobbyListenCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Connect and print lobby broadcasts until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			dialCtx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			conn, err := DialLobby(dialCtx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			if name != "" {
				if _, err := conn.Call(dialCtx, model.Command{Action: model.ActionSetName, Data: name}, model.ActionNameSet); err != nil {
					return fmt.Errorf("set name: %w", err)
				}
			}

			if cfg.Output != "json" {
				newOutput(cmd).PrintMessage("Connected, press Ctrl+C to disconnect")
			}
			return follow(cmd, conn)
		},
	}

	cmd.Flags().StringVar(&name, "as", "", "Set this player name after connecting")

	return cmd
}
