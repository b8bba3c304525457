// Package nats records lobby events in a NATS JetStream stream.
//
// Each event is published to "<prefix>.<event type>", so subscribers can
// follow a single kind of event with a plain NATS subscription while the
// stream retains history for the admin API.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/seabattle-lobby/internal/events"
	"github.com/mcoot/seabattle-lobby/internal/model"
)

// Sink publishes lobby events into a JetStream stream
type Sink struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	cfg  Config
}

var _ events.Store = (*Sink)(nil)

// New connects to NATS and makes sure the event stream exists
func New(cfg Config) (*Sink, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("seabattle-lobby"),
		nats.Timeout(cfg.ConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	s := &Sink{conn: conn, js: js, cfg: cfg}
	if err := s.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureStream() error {
	storage := nats.FileStorage
	if s.cfg.MemoryStorage {
		storage = nats.MemoryStorage
	}

	maxMsgs := s.cfg.MaxEvents
	if maxMsgs <= 0 {
		maxMsgs = -1
	}

	streamCfg := &nats.StreamConfig{
		Name:      s.cfg.Stream,
		Subjects:  []string{s.cfg.SubjectPrefix + ".>"},
		Storage:   storage,
		Retention: nats.LimitsPolicy,
		MaxMsgs:   maxMsgs,
		MaxAge:    s.cfg.MaxAge,
		Discard:   nats.DiscardOld,
	}

	_, err := s.js.StreamInfo(s.cfg.Stream)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		_, err = s.js.AddStream(streamCfg)
	case err == nil:
		_, err = s.js.UpdateStream(streamCfg)
	}
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", s.cfg.Stream, err)
	}
	return nil
}

// Subject returns the subject an event of the given type is published on
func (s *Sink) Subject(t model.EventType) string {
	return s.cfg.SubjectPrefix + "." + string(t)
}

// Publish appends the event to the stream and waits for the ack
func (s *Sink) Publish(ctx context.Context, event model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := s.js.Publish(s.Subject(event.Type), data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Recent walks the stream backwards from its last sequence, newest first
func (s *Sink) Recent(ctx context.Context, limit int) ([]model.Event, error) {
	info, err := s.js.StreamInfo(s.cfg.Stream, nats.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("stream info: %w", err)
	}

	state := info.State
	if state.Msgs == 0 {
		return []model.Event{}, nil
	}

	result := make([]model.Event, 0, min(state.Msgs, 64))
	for seq := state.LastSeq; seq >= state.FirstSeq && seq > 0; seq-- {
		if limit > 0 && len(result) >= limit {
			break
		}

		msg, err := s.js.GetMsg(s.cfg.Stream, seq, nats.Context(ctx))
		if errors.Is(err, nats.ErrMsgNotFound) {
			// Interior deletes leave gaps in the sequence
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read event %d: %w", seq, err)
		}

		var event model.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", seq, err)
		}
		result = append(result, event)
	}
	return result, nil
}

// Close drains outstanding publishes and closes the connection
func (s *Sink) Close() error {
	return s.conn.Drain()
}
