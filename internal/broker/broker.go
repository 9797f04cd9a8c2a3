// Package broker submits crawl jobs to a processing queue and consumes them on the worker side.
package broker

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// RetryPolicy is the delivery contract requested for a job.
type RetryPolicy struct {
	// MaxAttempts is the total number of handler runs allowed, including the first.
	MaxAttempts int
	// RemoveOnSuccess drops the job from the queue once handled.
	RemoveOnSuccess bool
}

// DefaultRetryPolicy allows three attempts and removes completed jobs.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, RemoveOnSuccess: true}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}

// Submitter hands a serialized job to a queue.
type Submitter interface {
	Submit(ctx context.Context, jobID string, payload []byte, policy RetryPolicy) error
	Close() error
}

// Delivery is one attempt at a queued job.
type Delivery struct {
	JobID      string
	Payload    []byte
	Attempt    int
	Policy     RetryPolicy
	EnqueuedAt time.Time
}

// Handler processes a delivery. A non-nil error asks for a retry while attempts remain.
type Handler func(ctx context.Context, d Delivery) error

// Consumer feeds deliveries to a Handler until ctx is done.
type Consumer interface {
	Run(ctx context.Context, handler Handler) error
	Close() error
}

// Field and header names shared by the producers and consumers.
const (
	fieldID              = "id"
	fieldPayload         = "payload"
	fieldAttempt         = "attempt"
	fieldMaxAttempts     = "max_attempts"
	fieldRemoveOnSuccess = "remove_on_success"
	fieldEnqueuedAt      = "enqueued_at"
)

// ErrMalformedDelivery marks a queue entry that cannot be decoded.
var ErrMalformedDelivery = errors.New("malformed delivery")

const (
	defaultRetryBase     = 200 * time.Millisecond
	defaultRetryMaxDelay = 2 * time.Second
	fetchErrorBackoff    = 500 * time.Millisecond
)

// backoff returns the delay before retry number attempt (1-based), doubling from base up to maxDelay.
func backoff(attempt int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if maxDelay > 0 && delay >= maxDelay {
			return maxDelay
		}
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

// sleepCtx waits for d or until ctx is done, reporting whether the full wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func parseAttempt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func parseBool(s string, fallback bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return b
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
