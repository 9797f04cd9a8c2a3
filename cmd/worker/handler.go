package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"interview-harvester/internal/broker"
	"interview-harvester/internal/metrics"
	"interview-harvester/internal/models"
	"interview-harvester/internal/store"
)

type graphWriter interface {
	WriteJob(ctx context.Context, job models.CrawlJob, questions []models.QuestionRecord) error
}

// jobHandler processes one delivered CrawlJob. The graph write goes first
// and is idempotent, so a failed attempt can be retried without losing
// questions that were already marked as seen.
type jobHandler struct {
	store   store.DedupeStore
	graph   graphWriter
	ttl     time.Duration
	metrics *metrics.Worker
	logger  *zap.Logger
}

func newJobHandler(s store.DedupeStore, graph graphWriter, ttl time.Duration, m *metrics.Worker, logger *zap.Logger) *jobHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &jobHandler{
		store:   s,
		graph:   graph,
		ttl:     ttl,
		metrics: m,
		logger:  logger.With(zap.String("component", "job_handler")),
	}
}

func (h *jobHandler) Handle(ctx context.Context, d broker.Delivery) error {
	start := time.Now()
	h.metrics.JobsReceived.Inc()
	defer func() { h.metrics.JobDuration.Observe(time.Since(start).Seconds()) }()

	stored, duplicates, err := h.process(ctx, d)
	if err != nil {
		h.metrics.JobsFailed.Inc()
		h.logger.Warn("job attempt failed",
			zap.String("job_id", d.JobID),
			zap.Int("attempt", d.Attempt),
			zap.Int("max_attempts", d.Policy.MaxAttempts),
			zap.Error(err))
		return err
	}
	h.metrics.JobsSucceeded.Inc()
	h.metrics.QuestionsStored.Add(float64(stored))
	h.metrics.QuestionsDuplicate.Add(float64(duplicates))
	h.logger.Info("job processed",
		zap.String("job_id", d.JobID),
		zap.Int("stored", stored),
		zap.Int("duplicates", duplicates))
	return nil
}

func (h *jobHandler) process(ctx context.Context, d broker.Delivery) (int, int, error) {
	var job models.CrawlJob
	if err := json.Unmarshal(d.Payload, &job); err != nil {
		return 0, 0, fmt.Errorf("decode job: %w", err)
	}
	if job.ID == "" {
		job.ID = d.JobID
	}

	questions := make([]models.QuestionRecord, 0, len(job.Questions))
	for _, q := range job.Questions {
		if strings.TrimSpace(q.Question) != "" {
			questions = append(questions, q)
		}
	}

	if h.graph != nil && len(questions) > 0 {
		if err := h.graph.WriteJob(ctx, job, questions); err != nil {
			return 0, 0, fmt.Errorf("write graph: %w", err)
		}
	}

	stored, duplicates := 0, 0
	for _, q := range questions {
		isNew, err := h.store.SetNX(ctx, dedupeKey(q), job.ID, h.ttl)
		if err != nil {
			return stored, duplicates, fmt.Errorf("dedupe question: %w", err)
		}
		if isNew {
			stored++
			h.logger.Debug("new question", zap.String("question", q.Question), zap.String("category", q.Category))
		} else {
			duplicates++
		}
	}
	return stored, duplicates, nil
}

func dedupeKey(q models.QuestionRecord) string {
	return store.DefaultQuestionPrefix + strings.TrimSpace(q.Key())
}
