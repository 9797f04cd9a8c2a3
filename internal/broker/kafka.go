package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"interview-harvester/internal/models"
)

// MessageReader abstracts kafka.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageWriter abstracts kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBroker publishes jobs to a Kafka topic keyed by job id.
type KafkaBroker struct {
	writer MessageWriter
	now    func() time.Time
}

// NewKafkaBroker creates a producer for topic. The writer retries transport
// failures up to policy.MaxAttempts times.
func NewKafkaBroker(broker, topic string, policy RetryPolicy) *KafkaBroker {
	policy = policy.normalized()
	return NewKafkaBrokerWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: false,
		MaxAttempts:            policy.MaxAttempts,
	})
}

// NewKafkaBrokerWithWriter builds a broker around a custom writer (tests).
func NewKafkaBrokerWithWriter(writer MessageWriter) *KafkaBroker {
	return &KafkaBroker{writer: writer, now: time.Now}
}

// Submit writes one message. The retry policy travels in the headers so the
// consumer can enforce it.
func (b *KafkaBroker) Submit(ctx context.Context, jobID string, payload []byte, policy RetryPolicy) error {
	policy = policy.normalized()
	now := b.now().UTC()
	msg := kafka.Message{
		Key:   []byte(jobID),
		Value: payload,
		Time:  now,
		Headers: []kafka.Header{
			{Key: fieldAttempt, Value: []byte("1")},
			{Key: fieldMaxAttempts, Value: []byte(strconv.Itoa(policy.MaxAttempts))},
			{Key: fieldRemoveOnSuccess, Value: []byte(strconv.FormatBool(policy.RemoveOnSuccess))},
			{Key: fieldEnqueuedAt, Value: []byte(now.Format(time.RFC3339Nano))},
		},
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka submit %s: %w", jobID, err)
	}
	return nil
}

// Close shuts down the underlying writer.
func (b *KafkaBroker) Close() error {
	return b.writer.Close()
}

// KafkaConsumerOptions tune KafkaConsumer.
type KafkaConsumerOptions struct {
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	// DeadLetter receives a JobFailure for every exhausted job when set.
	DeadLetter MessageWriter
}

// KafkaConsumer reads jobs from a consumer group. Kafka has no per-message
// redelivery, so retries happen in-process before the offset is committed.
type KafkaConsumer struct {
	reader MessageReader
	opts   KafkaConsumerOptions
	logger *zap.Logger
	now    func() time.Time
}

// NewKafkaConsumer creates a group reader for topic.
func NewKafkaConsumer(broker, topic, group string, opts KafkaConsumerOptions, logger *zap.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   topic,
		GroupID: group,
	})
	return NewKafkaConsumerWithReader(reader, opts, logger)
}

// NewKafkaConsumerWithReader builds a consumer around a custom reader (tests).
func NewKafkaConsumerWithReader(reader MessageReader, opts KafkaConsumerOptions, logger *zap.Logger) *KafkaConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RetryBase == 0 {
		opts.RetryBase = defaultRetryBase
	}
	if opts.RetryMaxDelay == 0 {
		opts.RetryMaxDelay = defaultRetryMaxDelay
	}
	return &KafkaConsumer{
		reader: reader,
		opts:   opts,
		logger: logger.With(zap.String("component", "kafka_consumer")),
		now:    time.Now,
	}
}

// Run fetches and handles messages until ctx is cancelled.
func (c *KafkaConsumer) Run(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("fetch error", zap.Error(err))
			if !sleepCtx(ctx, fetchErrorBackoff) {
				return nil
			}
			continue
		}

		if !c.process(ctx, msg, handler) {
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("commit error", zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// process runs the handler with retries. It returns false when ctx was
// cancelled before an outcome was reached, leaving the offset uncommitted.
func (c *KafkaConsumer) process(ctx context.Context, msg kafka.Message, handler Handler) bool {
	d := deliveryFromMessage(msg)
	var err error
	for attempt := d.Attempt; attempt <= d.Policy.MaxAttempts; attempt++ {
		d.Attempt = attempt
		if err = handler(ctx, d); err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		c.logger.Warn("job attempt failed",
			zap.String("job_id", d.JobID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", d.Policy.MaxAttempts),
			zap.Error(err))
		if attempt < d.Policy.MaxAttempts && !sleepCtx(ctx, backoff(attempt, c.opts.RetryBase, c.opts.RetryMaxDelay)) {
			return false
		}
	}

	c.logger.Error("job exhausted attempts", zap.String("job_id", d.JobID), zap.Int("attempts", d.Policy.MaxAttempts), zap.Error(err))
	if c.opts.DeadLetter != nil {
		if dlqErr := c.publishFailure(ctx, d, err); dlqErr != nil {
			c.logger.Error("dead letter publish error", zap.String("job_id", d.JobID), zap.Error(dlqErr))
		}
	}
	return true
}

func (c *KafkaConsumer) publishFailure(ctx context.Context, d Delivery, cause error) error {
	payload, err := json.Marshal(models.JobFailure{
		JobID:    d.JobID,
		Attempts: d.Attempt,
		Error:    cause.Error(),
		Payload:  string(d.Payload),
		FailedAt: c.now().UTC(),
	})
	if err != nil {
		return err
	}
	return c.opts.DeadLetter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(d.JobID),
		Value: payload,
		Time:  c.now().UTC(),
	})
}

// Close closes the reader and the dead-letter writer.
func (c *KafkaConsumer) Close() error {
	err := c.reader.Close()
	if c.opts.DeadLetter != nil {
		if dlqErr := c.opts.DeadLetter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}

func deliveryFromMessage(msg kafka.Message) Delivery {
	d := Delivery{
		JobID:   string(msg.Key),
		Payload: msg.Value,
		Attempt: 1,
		Policy:  DefaultRetryPolicy,
	}
	for _, h := range msg.Headers {
		v := string(h.Value)
		switch h.Key {
		case fieldAttempt:
			d.Attempt = parseAttempt(v, 1)
		case fieldMaxAttempts:
			d.Policy.MaxAttempts = parseAttempt(v, DefaultRetryPolicy.MaxAttempts)
		case fieldRemoveOnSuccess:
			d.Policy.RemoveOnSuccess = parseBool(v, DefaultRetryPolicy.RemoveOnSuccess)
		case fieldEnqueuedAt:
			d.EnqueuedAt = parseTime(v)
		}
	}
	if d.EnqueuedAt.IsZero() {
		d.EnqueuedAt = msg.Time
	}
	if d.Attempt > d.Policy.MaxAttempts {
		d.Attempt = d.Policy.MaxAttempts
	}
	return d
}
