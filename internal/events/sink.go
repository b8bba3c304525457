// Package events records lobby activity for operators.
//
// Sinks are written to from the protocol router and the connection
// supervisor; a failing sink is logged by the caller and never affects
// gameplay traffic.
package events

import (
	"context"

	"github.com/mcoot/seabattle-lobby/internal/model"
)

// Sink receives lobby events
type Sink interface {
	Publish(ctx context.Context, event model.Event) error
	Close() error
}

// Reader returns recently published events, newest first.
// A limit of zero or less returns everything retained.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]model.Event, error)
}

// Store is a sink that can also be read back
type Store interface {
	Sink
	Reader
}
