package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-harvester/internal/models"
)

func newRedisPair(t *testing.T) (*miniredis.Miniredis, *RedisStreamBroker, *RedisStreamConsumer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)

	producerClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	consumerClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inspect := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = inspect.Close() })

	b := NewRedisStreamBroker(producerClient, "")
	t.Cleanup(func() { _ = b.Close() })
	c := NewRedisStreamConsumer(consumerClient, RedisConsumerOptions{Block: -1}, nil)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.EnsureGroup(context.Background()))
	return mr, b, c, inspect
}

func TestRedisSubmitWritesEntry(t *testing.T) {
	_, b, _, inspect := newRedisPair(t)
	ctx := context.Background()

	require.NoError(t, b.Submit(ctx, "job-1", []byte(`{"id":"job-1"}`), DefaultRetryPolicy))

	entries, err := inspect.XRange(ctx, DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	v := entries[0].Values
	assert.Equal(t, "job-1", v[fieldID])
	assert.Equal(t, `{"id":"job-1"}`, v[fieldPayload])
	assert.Equal(t, "1", v[fieldAttempt])
	assert.Equal(t, "3", v[fieldMaxAttempts])
	assert.Equal(t, "true", v[fieldRemoveOnSuccess])
}

func TestRedisEnsureGroupIsIdempotent(t *testing.T) {
	_, _, c, _ := newRedisPair(t)
	assert.NoError(t, c.EnsureGroup(context.Background()))
}

func TestRedisConsumerSuccessRemovesEntry(t *testing.T) {
	_, b, c, inspect := newRedisPair(t)
	ctx := context.Background()
	require.NoError(t, b.Submit(ctx, "job-1", []byte("payload"), DefaultRetryPolicy))

	var got []Delivery
	n, err := c.Poll(ctx, func(_ context.Context, d Delivery) error {
		got = append(got, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, got, 1)
	assert.Equal(t, "job-1", got[0].JobID)
	assert.Equal(t, []byte("payload"), got[0].Payload)
	assert.Equal(t, 1, got[0].Attempt)
	assert.Equal(t, DefaultRetryPolicy, got[0].Policy)

	length, err := inspect.XLen(ctx, DefaultStream).Result()
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestRedisConsumerKeepsEntryWhenNotRemoving(t *testing.T) {
	_, b, c, inspect := newRedisPair(t)
	ctx := context.Background()
	require.NoError(t, b.Submit(ctx, "job-1", []byte("payload"), RetryPolicy{MaxAttempts: 1}))

	_, err := c.Poll(ctx, func(context.Context, Delivery) error { return nil })
	require.NoError(t, err)

	length, err := inspect.XLen(ctx, DefaultStream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
}

func TestRedisConsumerRetriesThenDeadLetters(t *testing.T) {
	_, b, c, inspect := newRedisPair(t)
	ctx := context.Background()
	require.NoError(t, b.Submit(ctx, "job-1", []byte("payload"), DefaultRetryPolicy))

	var attempts []int
	failing := func(_ context.Context, d Delivery) error {
		attempts = append(attempts, d.Attempt)
		return errors.New("neo4j unavailable")
	}
	for i := 0; i < 3; i++ {
		n, err := c.Poll(ctx, failing)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	}
	n, err := c.Poll(ctx, failing)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []int{1, 2, 3}, attempts)

	failed, err := inspect.XRange(ctx, FailedStream(DefaultStream), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	var failure models.JobFailure
	require.NoError(t, json.Unmarshal([]byte(failed[0].Values["failure"].(string)), &failure))
	assert.Equal(t, "job-1", failure.JobID)
	assert.Equal(t, 3, failure.Attempts)
	assert.Equal(t, "neo4j unavailable", failure.Error)
	assert.Equal(t, "payload", failure.Payload)
}

func TestRedisConsumerMalformedEntryIsDeadLettered(t *testing.T) {
	_, _, c, inspect := newRedisPair(t)
	ctx := context.Background()
	require.NoError(t, inspect.XAdd(ctx, &redis.XAddArgs{Stream: DefaultStream, Values: map[string]any{"junk": "1"}}).Err())

	called := false
	n, err := c.Poll(ctx, func(context.Context, Delivery) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, called)

	length, err := inspect.XLen(ctx, FailedStream(DefaultStream)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
}

func TestRedisConsumerRunStopsOnCancel(t *testing.T) {
	_, b, c, _ := newRedisPair(t)
	c.opts.IdleWait = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Submit(ctx, "job-1", []byte("payload"), DefaultRetryPolicy))

	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, func(context.Context, Delivery) error {
			cancel()
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
