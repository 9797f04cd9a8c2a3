package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"interview-harvester/internal/broker"
	"interview-harvester/internal/classifier"
	"interview-harvester/internal/config"
	"interview-harvester/internal/dedup"
	"interview-harvester/internal/extract"
	"interview-harvester/internal/frontier"
	"interview-harvester/internal/metrics"
	"interview-harvester/internal/render"
	"interview-harvester/internal/sink"
	"interview-harvester/internal/store"
)

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	visited := dedup.NewVisitedSet(cfg.Dedup.VisitedPath, logger)
	restored, err := visited.Restore()
	if err != nil {
		// a damaged snapshot costs re-crawling, not the run
		logger.Warn("visited set not restored, starting empty", zap.Error(err))
	} else {
		logger.Info("visited set restored", zap.Int("urls", restored), zap.String("path", cfg.Dedup.VisitedPath))
	}

	flusher, err := dedup.NewFlusher(visited, cfg.Dedup.FlushInterval, logger)
	if err != nil {
		return err
	}
	flusher.Start()
	defer func() {
		if err := flusher.Stop(); err != nil {
			logger.Error("final visited flush failed", zap.Error(err))
		}
	}()

	dispatcher, err := newDispatcher(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logger.Warn("sink close failed", zap.Error(err))
		}
	}()

	recorder, closeStatus := newStatusRecorder(cfg, logger)
	defer closeStatus()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	crawlMetrics := metrics.NewCrawler(reg)
	metrics.Serve(ctx, cfg.Metrics.Addr, reg, logger)

	renderer := render.NewChromeRenderer(render.Options{
		NavigationTimeout: cfg.Render.NavigationTimeout,
		SettleDelay:       cfg.Render.SettleDelay,
		ExecPath:          cfg.Render.ExecPath,
	}, logger)
	defer func() {
		if err := renderer.Close(); err != nil {
			logger.Warn("renderer close failed", zap.Error(err))
		}
	}()

	manager := frontier.NewManager(frontier.Config{
		MaxPages:        cfg.Crawl.MaxPages,
		PolitenessDelay: cfg.Crawl.PolitenessDelay,
	}, frontier.Deps{
		Renderer:   renderer,
		Visited:    visited,
		Classifier: classifier.New(),
		Questions:  extract.NewQuestionExtractor(),
		Links:      extract.NewLinkExtractor(logger),
		Sink:       dispatcher,
		Metrics:    crawlMetrics,
		Logger:     logger,
		Progress:   recorder.Progress,
	})

	recorder.Start(cfg.Seeds)
	stats, err := manager.Run(ctx, cfg.Seeds)
	recorder.Finish(stats, err)
	return err
}

// newDispatcher builds the configured sink strategy.
func newDispatcher(cfg *config.Config, logger *zap.Logger) (sink.Dispatcher, error) {
	if cfg.Sink.Strategy == config.SinkFile {
		return sink.NewFileSink(cfg.Sink.OutputPath, logger)
	}
	submitter, err := newSubmitter(cfg.Broker, logger)
	if err != nil {
		return nil, err
	}
	return sink.NewQueueSink(submitter, cfg.Broker.RetryPolicy(), logger), nil
}

func newSubmitter(cfg config.BrokerConfig, logger *zap.Logger) (broker.Submitter, error) {
	switch cfg.Kind {
	case config.BrokerKafka:
		logger.Info("queue sink on kafka", zap.String("broker", cfg.KafkaBroker), zap.String("topic", cfg.Topic))
		return broker.NewKafkaBroker(cfg.KafkaBroker, cfg.Topic, cfg.RetryPolicy()), nil
	case config.BrokerRedis:
		opts, err := cfg.RedisOptions()
		if err != nil {
			return nil, err
		}
		logger.Info("queue sink on redis streams", zap.String("addr", opts.Addr), zap.String("stream", cfg.Topic))
		return broker.NewRedisStreamBroker(redis.NewClient(opts), cfg.Topic), nil
	default:
		return nil, fmt.Errorf("unsupported broker kind %q", cfg.Kind)
	}
}

func newStatusRecorder(cfg *config.Config, logger *zap.Logger) (*statusRecorder, func()) {
	if !cfg.Status.Enabled {
		return newStatusRecorderWithStore(nil, "", logger), func() {}
	}
	opts, err := cfg.Broker.RedisOptions()
	if err != nil {
		logger.Warn("run status disabled", zap.Error(err))
		return newStatusRecorderWithStore(nil, "", logger), func() {}
	}
	statusStore := store.NewRedisStatusStore(opts, store.DefaultStatusPrefix, cfg.Status.TTL)
	recorder := newStatusRecorderWithStore(statusStore, uuid.NewString(), logger)
	return recorder, func() {
		if err := statusStore.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			logger.Warn("status store close failed", zap.Error(err))
		}
	}
}

const statusWriteTimeout = 3 * time.Second
