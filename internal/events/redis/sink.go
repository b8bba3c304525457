package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/seabattle-lobby/internal/events"
	"github.com/mcoot/seabattle-lobby/internal/model"
)

// Sink publishes lobby events to a Redis channel and keeps a capped
// list of the most recent ones
type Sink struct {
	client *redis.Client
	cfg    Config
}

// Ensure Sink implements the interface
var _ events.Store = (*Sink)(nil)

// New connects to Redis and creates a Sink
func New(cfg Config) (*Sink, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Sink{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Sink with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Sink {
	return &Sink{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Sink) Close() error {
	return s.client.Close()
}

// Publish sends the event to subscribers and records it in the recent list
func (s *Sink) Publish(ctx context.Context, event model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, s.cfg.Channel, data)
		pipe.LPush(ctx, s.cfg.ListKey, data)
		if s.cfg.MaxRecent > 0 {
			pipe.LTrim(ctx, s.cfg.ListKey, 0, s.cfg.MaxRecent-1)
		}
		if s.cfg.TTL > 0 {
			pipe.Expire(ctx, s.cfg.ListKey, s.cfg.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Recent returns up to limit events from the recent list, newest first
func (s *Sink) Recent(ctx context.Context, limit int) ([]model.Event, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	items, err := s.client.LRange(ctx, s.cfg.ListKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent events: %w", err)
	}

	result := make([]model.Event, 0, len(items))
	for _, item := range items {
		var event model.Event
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		result = append(result, event)
	}
	return result, nil
}
