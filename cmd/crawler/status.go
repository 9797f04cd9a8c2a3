package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"interview-harvester/internal/frontier"
	"interview-harvester/internal/models"
	"interview-harvester/internal/store"
)

// statusRecorder mirrors the crawl's progress into a StatusStore. A nil
// store turns every method into a no-op. Write failures are logged only.
type statusRecorder struct {
	store  store.StatusStore
	logger *zap.Logger
	now    func() time.Time
	status models.RunStatus
}

func newStatusRecorderWithStore(s store.StatusStore, runID string, logger *zap.Logger) *statusRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &statusRecorder{
		store:  s,
		logger: logger.With(zap.String("component", "run_status"), zap.String("run_id", runID)),
		now:    time.Now,
		status: models.RunStatus{RunID: runID},
	}
}

func (r *statusRecorder) Start(seeds []string) {
	if r.store == nil {
		return
	}
	now := r.now().UTC()
	r.status.Seeds = seeds
	r.status.Status = models.RunStatusRunning
	r.status.StartedAt = now
	r.status.UpdatedAt = now
	r.write()
	r.logger.Info("run registered")
}

// Progress is the frontier callback; it runs on the crawl loop.
func (r *statusRecorder) Progress(stats frontier.Stats) {
	if r.store == nil {
		return
	}
	r.apply(stats)
	r.write()
}

func (r *statusRecorder) Finish(stats frontier.Stats, runErr error) {
	if r.store == nil {
		return
	}
	r.apply(stats)
	r.status.Status = models.RunStatusFinished
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		r.status.Status = models.RunStatusInterrupted
	}
	r.write()
	r.logger.Info("run closed", zap.String("status", r.status.Status))
}

func (r *statusRecorder) apply(stats frontier.Stats) {
	r.status.PagesProcessed = stats.Processed
	r.status.PagesSkipped = stats.Skipped
	r.status.RenderFailures = stats.RenderFailures
	r.status.QuestionsFound = stats.QuestionsFound
	r.status.QuestionsDispatched = stats.QuestionsDispatched
	r.status.UpdatedAt = r.now().UTC()
}

// write uses its own deadline so the final status lands after cancellation.
func (r *statusRecorder) write() {
	ctx, cancel := context.WithTimeout(context.Background(), statusWriteTimeout)
	defer cancel()
	if err := r.store.SetStatus(ctx, r.status); err != nil {
		r.logger.Warn("run status write failed", zap.Error(err))
	}
}
