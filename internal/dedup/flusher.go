package dedup

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultFlushInterval is how often the visited set is written to disk.
const DefaultFlushInterval = 60 * time.Second

// Snapshotter is anything the flusher can persist.
type Snapshotter interface {
	Flush() error
}

// Flusher periodically persists a Snapshotter and performs a final flush on Stop.
type Flusher struct {
	target Snapshotter
	cron   *cron.Cron
	logger *zap.Logger
}

// NewFlusher schedules target.Flush every interval. Sub-second intervals round up to one second.
func NewFlusher(target Snapshotter, interval time.Duration, logger *zap.Logger) (*Flusher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	f := &Flusher{
		target: target,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger.With(zap.String("component", "flusher")),
	}
	if _, err := f.cron.AddFunc(fmt.Sprintf("@every %s", interval), f.flush); err != nil {
		return nil, fmt.Errorf("schedule flush: %w", err)
	}
	return f, nil
}

// Start begins the periodic schedule.
func (f *Flusher) Start() {
	f.cron.Start()
}

// Stop halts the schedule, waits for a running flush and writes a final snapshot.
func (f *Flusher) Stop() error {
	<-f.cron.Stop().Done()
	return f.target.Flush()
}

func (f *Flusher) flush() {
	if err := f.target.Flush(); err != nil {
		f.logger.Error("periodic flush failed", zap.Error(err))
	}
}
