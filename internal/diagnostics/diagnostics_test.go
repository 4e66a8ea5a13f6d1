package diagnostics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backpro/internal/config"
)

const testStream = "backpro:diagnostics"

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := Dial(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func TestStreamRecorderAppends(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rec := NewStreamRecorder(client, testStream, zerolog.Nop())
	require.NoError(t, rec.Record(ctx, Event{Session: "s1", Kind: "remote", Cause: "no image produced", At: at}))

	msgs, err := client.XRange(ctx, testStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "s1", msgs[0].Values["session"])
	assert.Equal(t, "remote", msgs[0].Values["kind"])
	assert.Equal(t, "no image produced", msgs[0].Values["cause"])
	assert.Equal(t, at.Format(time.RFC3339Nano), msgs[0].Values["at"])
}

func TestDialFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = Dial(context.Background(), config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestConsumerHandlesAndAcks(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	rec := NewStreamRecorder(client, testStream, zerolog.Nop())
	require.NoError(t, rec.Record(ctx, Event{Session: "s1", Kind: "remote", Cause: "boom", At: time.Now()}))
	require.NoError(t, rec.Record(ctx, Event{Session: "s2", Kind: "encoding", Cause: "revoked", At: time.Now()}))
	require.NoError(t, rec.Record(ctx, Event{Session: "s3", Kind: "remote", Cause: "timeout", At: time.Now()}))

	proc := NewProcessor(zerolog.Nop())
	c := NewConsumer(client, testStream, "diag", "c1", time.Minute, zerolog.Nop(), proc)
	c.block = -1

	require.NoError(t, c.EnsureGroup(ctx))
	require.NoError(t, c.EnsureGroup(ctx), "group creation is idempotent")

	acked, err := c.ReadOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, acked)
	assert.Equal(t, map[string]int{"remote": 2, "encoding": 1}, proc.Counts())

	pending, err := client.XPending(ctx, testStream, "diag").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 0, pending.Count)

	acked, err = c.ReadOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, acked)
}

func TestConsumerLeavesUndecodablePending(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: testStream,
		Values: map[string]any{"session": "s1"},
	}).Err())

	c := NewConsumer(client, testStream, "diag", "c1", time.Minute, zerolog.Nop(), NewProcessor(zerolog.Nop()))
	c.block = -1
	require.NoError(t, c.EnsureGroup(ctx))

	acked, err := c.ReadOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, acked)

	pending, err := client.XPending(ctx, testStream, "diag").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Count)
}

func TestDecode(t *testing.T) {
	e, err := decode(map[string]interface{}{
		"session": "s", "kind": "remote", "cause": "x", "at": "2026-10-18T12:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "remote", e.Kind)
	assert.Equal(t, 2026, e.At.Year())

	_, err = decode(map[string]interface{}{"kind": "remote", "at": "yesterday"})
	assert.Error(t, err)
}
