package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"interview-harvester/internal/broker"
	"interview-harvester/internal/config"
	"interview-harvester/internal/logger"
	"interview-harvester/internal/models"
	"interview-harvester/internal/sink"
)

// Fixture holds the pages submitted to the queue.
type Fixture struct {
	Pages []models.ExtractedPage `json:"pages"`
}

func main() {
	fixturePath := flag.String("pages", "pages.json", "Path to JSON file with extracted pages")
	configPath := flag.String("config", "", "Path to a YAML config file")
	repeat := flag.Int("repeat", 1, "How many times each page is submitted")
	concurrency := flag.Int("concurrency", 4, "Parallel submitters")
	jobsPerSecond := flag.Float64("rate", 0, "Maximum jobs submitted per second (0 = unlimited)")
	flag.Parse()

	cfg, err := config.Load(config.New(), *configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, closer, err := logger.New(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()

	fixture, err := loadFixture(*fixturePath)
	if err != nil {
		log.Fatal("invalid fixture", zap.String("path", *fixturePath), zap.Error(err))
	}

	dispatcher, err := newQueueSink(cfg.Broker, log)
	if err != nil {
		log.Fatal("queue unavailable", zap.Error(err))
	}
	defer dispatcher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sent, failed := run(ctx, fixture.Pages, dispatcher, *repeat, *concurrency, newLimiter(*jobsPerSecond), log)
	log.Info("load generation finished", zap.Int64("jobs_sent", sent), zap.Int64("jobs_failed", failed))
}

func newQueueSink(cfg config.BrokerConfig, log *zap.Logger) (*sink.QueueSink, error) {
	var submitter broker.Submitter
	switch cfg.Kind {
	case config.BrokerKafka:
		submitter = broker.NewKafkaBroker(cfg.KafkaBroker, cfg.Topic, cfg.RetryPolicy())
	case config.BrokerRedis:
		opts, err := cfg.RedisOptions()
		if err != nil {
			return nil, err
		}
		submitter = broker.NewRedisStreamBroker(redis.NewClient(opts), cfg.Topic)
	default:
		return nil, fmt.Errorf("unsupported broker kind %q", cfg.Kind)
	}
	return sink.NewQueueSink(submitter, cfg.RetryPolicy(), log), nil
}

// newLimiter paces job submission; a non-positive rate means no limit.
func newLimiter(jobsPerSecond float64) *rate.Limiter {
	if jobsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(jobsPerSecond), 1)
}

// run dispatches every page repeat times across concurrency goroutines,
// handing out work no faster than limiter allows, and returns how many jobs
// were accepted and how many failed.
func run(ctx context.Context, pages []models.ExtractedPage, dispatcher sink.Dispatcher, repeat, concurrency int, limiter *rate.Limiter, log *zap.Logger) (int64, int64) {
	if repeat < 1 {
		repeat = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}

	work := make(chan models.ExtractedPage)
	var sent, failed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for page := range work {
				if _, err := dispatcher.Dispatch(ctx, page); err != nil {
					failed.Add(1)
					log.Warn("submit failed", zap.Int("submitter", idx), zap.String("url", page.URL), zap.Error(err))
					continue
				}
				sent.Add(1)
			}
		}(i)
	}

feed:
	for r := 0; r < repeat; r++ {
		for _, page := range pages {
			if err := limiter.Wait(ctx); err != nil {
				break feed
			}
			select {
			case work <- page:
			case <-ctx.Done():
				break feed
			}
		}
	}
	close(work)
	wg.Wait()
	return sent.Load(), failed.Load()
}

// loadFixture reads and parses the JSON fixture file.
func loadFixture(path string) (Fixture, error) {
	var fixture Fixture
	data, err := os.ReadFile(path)
	if err != nil {
		return fixture, err
	}
	if err := json.Unmarshal(data, &fixture); err != nil {
		return fixture, err
	}
	if len(fixture.Pages) == 0 {
		return fixture, errNoPages
	}
	return fixture, nil
}

var errNoPages = errors.New("fixture has no pages")
