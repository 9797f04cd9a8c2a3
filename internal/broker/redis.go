package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"interview-harvester/internal/models"
)

// DefaultStream is the stream jobs are added to.
const DefaultStream = "interview-questions"

// FailedStream names the dead-letter stream for stream.
func FailedStream(stream string) string {
	return stream + ":failed"
}

// RedisStreamBroker adds jobs to a Redis stream.
type RedisStreamBroker struct {
	client *redis.Client
	stream string
	now    func() time.Time
}

// NewRedisStreamBroker wraps client. An empty stream uses DefaultStream.
func NewRedisStreamBroker(client *redis.Client, stream string) *RedisStreamBroker {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamBroker{client: client, stream: stream, now: time.Now}
}

// Submit adds the job as attempt 1.
func (b *RedisStreamBroker) Submit(ctx context.Context, jobID string, payload []byte, policy RetryPolicy) error {
	policy = policy.normalized()
	values := deliveryValues(Delivery{
		JobID:      jobID,
		Payload:    payload,
		Attempt:    1,
		Policy:     policy,
		EnqueuedAt: b.now().UTC(),
	})
	if err := b.client.XAdd(ctx, &redis.XAddArgs{Stream: b.stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("redis submit %s: %w", jobID, err)
	}
	return nil
}

// Close closes the Redis client.
func (b *RedisStreamBroker) Close() error {
	return b.client.Close()
}

// RedisConsumerOptions configure a RedisStreamConsumer.
type RedisConsumerOptions struct {
	Stream   string
	Group    string
	Consumer string
	// Count is the batch size per read.
	Count int64
	// Block is how long a read waits for new entries. Zero means five
	// seconds; negative disables blocking.
	Block time.Duration
	// IdleWait is slept between empty non-blocking reads.
	IdleWait time.Duration
}

// RedisStreamConsumer consumes jobs through a consumer group. A failed
// attempt is re-added to the stream with its attempt counter bumped; jobs
// that exhaust their policy are recorded on the failed stream.
type RedisStreamConsumer struct {
	client *redis.Client
	opts   RedisConsumerOptions
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisStreamConsumer fills in option defaults.
func NewRedisStreamConsumer(client *redis.Client, opts RedisConsumerOptions, logger *zap.Logger) *RedisStreamConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Stream == "" {
		opts.Stream = DefaultStream
	}
	if opts.Group == "" {
		opts.Group = "interview-workers"
	}
	if opts.Consumer == "" {
		opts.Consumer = "worker-1"
	}
	if opts.Count <= 0 {
		opts.Count = 10
	}
	if opts.Block == 0 {
		opts.Block = 5 * time.Second
	}
	if opts.IdleWait <= 0 {
		opts.IdleWait = time.Second
	}
	return &RedisStreamConsumer{
		client: client,
		opts:   opts,
		logger: logger.With(zap.String("component", "redis_consumer"), zap.String("stream", opts.Stream)),
		now:    time.Now,
	}
}

// EnsureGroup creates the consumer group and stream when missing.
func (c *RedisStreamConsumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.opts.Stream, c.opts.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", c.opts.Group, err)
	}
	return nil
}

// Run handles entries until ctx is cancelled. Entries this consumer read
// before a restart but never acknowledged are handled first.
func (c *RedisStreamConsumer) Run(ctx context.Context, handler Handler) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}
	for {
		n, err := c.read(ctx, "0", handler)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			c.logger.Warn("pending entries not recovered", zap.Error(err))
			break
		}
		if n == 0 {
			break
		}
	}

	for {
		n, err := c.Poll(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			c.logger.Warn("read error", zap.Error(err))
			if !sleepCtx(ctx, fetchErrorBackoff) {
				return nil
			}
			continue
		}
		if n == 0 && c.opts.Block < 0 && !sleepCtx(ctx, c.opts.IdleWait) {
			return nil
		}
	}
}

// Poll reads one batch of new entries and handles them, returning how many were read.
func (c *RedisStreamConsumer) Poll(ctx context.Context, handler Handler) (int, error) {
	return c.read(ctx, ">", handler)
}

func (c *RedisStreamConsumer) read(ctx context.Context, from string, handler Handler) (int, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.opts.Group,
		Consumer: c.opts.Consumer,
		Streams:  []string{c.opts.Stream, from},
		Count:    c.opts.Count,
		Block:    c.opts.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	n := 0
	for _, s := range streams {
		for _, msg := range s.Messages {
			n++
			if err := c.handle(ctx, msg, handler); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

func (c *RedisStreamConsumer) handle(ctx context.Context, msg redis.XMessage, handler Handler) error {
	d, err := deliveryFromValues(msg.Values)
	if err != nil {
		c.logger.Error("dropping malformed entry", zap.String("entry_id", msg.ID), zap.Error(err))
		if err := c.fail(ctx, d, err); err != nil {
			return err
		}
		return c.ack(ctx, msg.ID, true)
	}

	herr := handler(ctx, d)
	if herr == nil {
		return c.ack(ctx, msg.ID, d.Policy.RemoveOnSuccess)
	}
	if ctx.Err() != nil {
		// left pending and picked up again on restart
		return ctx.Err()
	}

	if d.Attempt < d.Policy.MaxAttempts {
		c.logger.Warn("job attempt failed, requeueing",
			zap.String("job_id", d.JobID),
			zap.Int("attempt", d.Attempt),
			zap.Int("max_attempts", d.Policy.MaxAttempts),
			zap.Error(herr))
		retry := d
		retry.Attempt++
		if err := c.client.XAdd(ctx, &redis.XAddArgs{Stream: c.opts.Stream, Values: deliveryValues(retry)}).Err(); err != nil {
			return fmt.Errorf("requeue %s: %w", d.JobID, err)
		}
		return c.ack(ctx, msg.ID, true)
	}

	c.logger.Error("job exhausted attempts", zap.String("job_id", d.JobID), zap.Int("attempts", d.Attempt), zap.Error(herr))
	if err := c.fail(ctx, d, herr); err != nil {
		return err
	}
	return c.ack(ctx, msg.ID, false)
}

func (c *RedisStreamConsumer) ack(ctx context.Context, id string, remove bool) error {
	if err := c.client.XAck(ctx, c.opts.Stream, c.opts.Group, id).Err(); err != nil {
		return fmt.Errorf("ack %s: %w", id, err)
	}
	if remove {
		if err := c.client.XDel(ctx, c.opts.Stream, id).Err(); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
	}
	return nil
}

func (c *RedisStreamConsumer) fail(ctx context.Context, d Delivery, cause error) error {
	failure, err := json.Marshal(models.JobFailure{
		JobID:    d.JobID,
		Attempts: d.Attempt,
		Error:    cause.Error(),
		Payload:  string(d.Payload),
		FailedAt: c.now().UTC(),
	})
	if err != nil {
		return err
	}
	err = c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: FailedStream(c.opts.Stream),
		Values: map[string]any{fieldID: d.JobID, "failure": string(failure)},
	}).Err()
	if err != nil {
		return fmt.Errorf("record failure %s: %w", d.JobID, err)
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisStreamConsumer) Close() error {
	return c.client.Close()
}

func deliveryValues(d Delivery) map[string]any {
	return map[string]any{
		fieldID:              d.JobID,
		fieldPayload:         string(d.Payload),
		fieldAttempt:         strconv.Itoa(d.Attempt),
		fieldMaxAttempts:     strconv.Itoa(d.Policy.MaxAttempts),
		fieldRemoveOnSuccess: strconv.FormatBool(d.Policy.RemoveOnSuccess),
		fieldEnqueuedAt:      d.EnqueuedAt.Format(time.RFC3339Nano),
	}
}

func deliveryFromValues(values map[string]any) (Delivery, error) {
	str := func(key string) string {
		v, _ := values[key].(string)
		return v
	}
	d := Delivery{
		JobID:   str(fieldID),
		Payload: []byte(str(fieldPayload)),
		Attempt: parseAttempt(str(fieldAttempt), 1),
		Policy: RetryPolicy{
			MaxAttempts:     parseAttempt(str(fieldMaxAttempts), DefaultRetryPolicy.MaxAttempts),
			RemoveOnSuccess: parseBool(str(fieldRemoveOnSuccess), DefaultRetryPolicy.RemoveOnSuccess),
		},
		EnqueuedAt: parseTime(str(fieldEnqueuedAt)),
	}
	if d.JobID == "" || len(d.Payload) == 0 {
		return d, fmt.Errorf("%w: missing id or payload", ErrMalformedDelivery)
	}
	return d, nil
}
