package sink

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"interview-harvester/internal/broker"
	"interview-harvester/internal/models"
)

// QueueSink submits each page as a CrawlJob. The broker owns retries; a
// failed submit drops the job.
type QueueSink struct {
	submitter broker.Submitter
	policy    broker.RetryPolicy
	logger    *zap.Logger
	now       func() time.Time
}

func NewQueueSink(submitter broker.Submitter, policy broker.RetryPolicy, logger *zap.Logger) *QueueSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueSink{
		submitter: submitter,
		policy:    policy,
		logger:    logger.With(zap.String("component", "queue_sink")),
		now:       time.Now,
	}
}

func (s *QueueSink) Dispatch(ctx context.Context, page models.ExtractedPage) (int, error) {
	job := models.NewCrawlJob(page, s.now())
	payload, err := json.Marshal(job)
	if err != nil {
		return 0, &DispatchError{Strategy: StrategyQueue, Target: page.URL, Err: err}
	}
	if err := s.submitter.Submit(ctx, job.ID, payload, s.policy); err != nil {
		s.logger.Error("job submit failed, dropping", zap.String("job_id", job.ID), zap.String("url", page.URL), zap.Error(err))
		return 0, &DispatchError{Strategy: StrategyQueue, Target: page.URL, Err: err}
	}
	s.logger.Info("job submitted",
		zap.String("job_id", job.ID),
		zap.String("url", page.URL),
		zap.Int("questions", len(job.Questions)))
	return len(job.Questions), nil
}

func (s *QueueSink) Close() error {
	return s.submitter.Close()
}
