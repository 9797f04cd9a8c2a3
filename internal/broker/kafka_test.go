package broker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	kgo "github.com/segmentio/kafka-go"

	"interview-harvester/internal/broker"
	"interview-harvester/internal/models"
	"interview-harvester/mocks"
)

func headerMap(msg kgo.Message) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestKafkaBrokerSubmit(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	writer := mocks.NewMockMessageWriter(ctrl)
	b := broker.NewKafkaBrokerWithWriter(writer)

	writer.EXPECT().
		WriteMessages(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs ...kgo.Message) error {
			if len(msgs) != 1 {
				t.Fatalf("expected 1 message, got %d", len(msgs))
			}
			if string(msgs[0].Key) != "job-1" {
				t.Fatalf("unexpected message key: %s", string(msgs[0].Key))
			}
			if string(msgs[0].Value) != `{"id":"job-1"}` {
				t.Fatalf("unexpected payload: %s", string(msgs[0].Value))
			}
			h := headerMap(msgs[0])
			if h["attempt"] != "1" || h["max_attempts"] != "3" || h["remove_on_success"] != "true" {
				t.Fatalf("unexpected headers: %+v", h)
			}
			return nil
		})

	if err := b.Submit(context.Background(), "job-1", []byte(`{"id":"job-1"}`), broker.DefaultRetryPolicy); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
}

func TestKafkaBrokerSubmitError(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	writer := mocks.NewMockMessageWriter(ctrl)
	b := broker.NewKafkaBrokerWithWriter(writer)

	cause := errors.New("write failed")
	writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(cause)
	err := b.Submit(context.Background(), "job-err", nil, broker.DefaultRetryPolicy)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped write error, got %v", err)
	}
}

func jobMessage(id string, maxAttempts string) kgo.Message {
	return kgo.Message{
		Key:   []byte(id),
		Value: []byte(`{"id":"` + id + `"}`),
		Headers: []kgo.Header{
			{Key: "attempt", Value: []byte("1")},
			{Key: "max_attempts", Value: []byte(maxAttempts)},
		},
	}
}

// expectSingleMessage makes the reader yield msg once and then cancel the run.
func expectSingleMessage(reader *mocks.MockMessageReader, msg kgo.Message, cancel context.CancelFunc) {
	gomock.InOrder(
		reader.EXPECT().FetchMessage(gomock.Any()).Return(msg, nil),
		reader.EXPECT().FetchMessage(gomock.Any()).DoAndReturn(func(ctx context.Context) (kgo.Message, error) {
			cancel()
			return kgo.Message{}, ctx.Err()
		}),
	)
}

func TestKafkaConsumerCommitsAfterSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := mocks.NewMockMessageReader(ctrl)
	msg := jobMessage("job-1", "3")
	expectSingleMessage(reader, msg, cancel)
	reader.EXPECT().CommitMessages(gomock.Any(), gomock.Any()).Return(nil)

	c := broker.NewKafkaConsumerWithReader(reader, broker.KafkaConsumerOptions{}, nil)
	calls := 0
	err := c.Run(ctx, func(_ context.Context, d broker.Delivery) error {
		calls++
		if d.JobID != "job-1" || d.Attempt != 1 || d.Policy.MaxAttempts != 3 {
			t.Fatalf("unexpected delivery: %+v", d)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 handler call, got %d", calls)
	}
}

func TestKafkaConsumerRetriesThenDeadLetters(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := mocks.NewMockMessageReader(ctrl)
	dlq := mocks.NewMockMessageWriter(ctrl)
	msg := jobMessage("job-2", "2")
	expectSingleMessage(reader, msg, cancel)
	reader.EXPECT().CommitMessages(gomock.Any(), gomock.Any()).Return(nil)
	dlq.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msgs ...kgo.Message) error {
		var failure models.JobFailure
		if err := json.Unmarshal(msgs[0].Value, &failure); err != nil {
			t.Fatalf("failed to decode failure: %v", err)
		}
		if failure.JobID != "job-2" || failure.Attempts != 2 || failure.Error != "boom" {
			t.Fatalf("unexpected failure: %+v", failure)
		}
		return nil
	})

	c := broker.NewKafkaConsumerWithReader(reader, broker.KafkaConsumerOptions{
		RetryBase:     time.Millisecond,
		RetryMaxDelay: 2 * time.Millisecond,
		DeadLetter:    dlq,
	}, nil)

	var attempts []int
	err := c.Run(ctx, func(_ context.Context, d broker.Delivery) error {
		attempts = append(attempts, d.Attempt)
		return errors.New("boom")
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Fatalf("unexpected attempts: %v", attempts)
	}
}

func TestKafkaConsumerDefaultsPolicyWithoutHeaders(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := mocks.NewMockMessageReader(ctrl)
	expectSingleMessage(reader, kgo.Message{Key: []byte("job-3"), Value: []byte("{}")}, cancel)
	reader.EXPECT().CommitMessages(gomock.Any(), gomock.Any()).Return(nil)

	c := broker.NewKafkaConsumerWithReader(reader, broker.KafkaConsumerOptions{}, nil)
	err := c.Run(ctx, func(_ context.Context, d broker.Delivery) error {
		if d.Policy != broker.DefaultRetryPolicy {
			t.Fatalf("unexpected policy: %+v", d.Policy)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}
