// Package diagnostics records why a generation failed. Users only ever see a
// generic message; the classified cause ends up here.
package diagnostics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"backpro/internal/config"
)

type Event struct {
	Session string
	Kind    string
	Cause   string
	At      time.Time
}

type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// LogRecorder only logs.
type LogRecorder struct {
	log zerolog.Logger
}

func NewLogRecorder(log zerolog.Logger) *LogRecorder {
	return &LogRecorder{log: log}
}

func (r *LogRecorder) Record(_ context.Context, e Event) error {
	r.log.Error().
		Str("session", e.Session).
		Str("kind", e.Kind).
		Str("cause", e.Cause).
		Time("at", e.At).
		Msg("generation failed")
	return nil
}

// StreamRecorder logs and appends every event to a Redis stream so that
// backpro-diag can follow failures across instances.
type StreamRecorder struct {
	client *redis.Client
	stream string
	logs   *LogRecorder
}

func NewStreamRecorder(client *redis.Client, stream string, log zerolog.Logger) *StreamRecorder {
	return &StreamRecorder{
		client: client,
		stream: stream,
		logs:   NewLogRecorder(log),
	}
}

func (r *StreamRecorder) Record(ctx context.Context, e Event) error {
	_ = r.logs.Record(ctx, e)

	_, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: encode(e),
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", r.stream, err)
	}
	return nil
}

func encode(e Event) map[string]any {
	return map[string]any{
		"session": e.Session,
		"kind":    e.Kind,
		"cause":   e.Cause,
		"at":      e.At.UTC().Format(time.RFC3339Nano),
	}
}

// Dial connects to Redis and pings it.
func Dial(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}
