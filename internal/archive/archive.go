// Package archive publishes final match results to a Redis stream so
// downstream consumers (leaderboards, stats pipelines) can persist them.
// The match core itself never depends on this package.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	server "nock-and-loose/server"
)

const defaultStream = "matches.results"

// Config locates the Redis target.
type Config struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

// Publisher writes match results to a Redis stream.
type Publisher struct {
	client *redis.Client
	stream string
}

// New connects a publisher to the configured Redis instance.
func New(cfg Config) *Publisher {
	stream := cfg.Stream
	if stream == "" {
		stream = defaultStream
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Publisher{client: client, stream: stream}
}

// Ping verifies connectivity at startup.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// ArchiveResult implements server.ResultArchiver.
func (p *Publisher) ArchiveResult(ctx context.Context, result server.MatchResult) error {
	values, err := resultValues(result)
	if err != nil {
		return err
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err()
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// resultValues builds the stream entry for one result.
func resultValues(result server.MatchResult) (map[string]any, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshaling match result: %w", err)
	}
	return map[string]any{
		"data":      string(data),
		"winner_id": result.WinnerID,
		"ended_at":  result.EndedAt,
		"players":   len(result.Entries),
	}, nil
}
