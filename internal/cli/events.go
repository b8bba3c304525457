package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/seabattle-lobby/internal/api/response"
)

func newEventsCmd() *cobra.Command {
	var limit int
	var followEvents bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent lobby events",
		Long: `Show recent lobby events from the server's event store, oldest first.

Event types:
  - player_connected / player_disconnected
  - name_set
  - game_created / game_joined / game_removed
  - games_swept: The janitor removed finished games

With --follow, poll for new events until Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !followEvents {
				events, err := fetchEvents(cmd.Context(), limit)
				if err != nil {
					return err
				}
				newOutput(cmd).Print(events)
				return nil
			}
			return pollEvents(cmd, limit, interval)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of events to fetch")
	cmd.Flags().BoolVarP(&followEvents, "follow", "f", false, "Keep polling for new events")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Polling interval with --follow")

	return cmd
}

// fetchEvents returns up to limit recent events, oldest first
func fetchEvents(ctx context.Context, limit int) ([]response.Event, error) {
	var events []response.Event
	if err := client.Get(ctx, fmt.Sprintf("/api/v1/events?limit=%d", limit), &events); err != nil {
		return nil, err
	}
	slices.Reverse(events)
	return events, nil
}

func pollEvents(cmd *cobra.Command, limit int, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := newOutput(cmd)
	var last time.Time

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		events, err := fetchEvents(ctx, limit)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		fresh := newerThan(events, last)
		if len(fresh) > 0 {
			out.Print(fresh)
			last = fresh[len(fresh)-1].Timestamp
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// newerThan keeps the events stamped after t, preserving order
func newerThan(events []response.Event, t time.Time) []response.Event {
	var out []response.Event
	for _, e := range events {
		if e.Timestamp.After(t) {
			out = append(out, e)
		}
	}
	return out
}
