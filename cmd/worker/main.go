package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"interview-harvester/internal/broker"
	"interview-harvester/internal/config"
	"interview-harvester/internal/graph"
	"interview-harvester/internal/logger"
	"interview-harvester/internal/metrics"
	"interview-harvester/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string
	v := config.New()
	cmd := &cobra.Command{
		Use:           "worker",
		Short:         "Consume extracted question jobs from the queue",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			log, closer, err := logger.New(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File})
			if err != nil {
				return err
			}
			defer closer.Close()
			defer func() { _ = log.Sync() }()
			return run(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "path to a YAML config file")
	cmd.Flags().Int("concurrency", 0, "number of consumers in this process")
	if err := config.BindFlags(v, cmd.Flags(), map[string]string{"concurrency": "worker.concurrency"}); err != nil {
		panic(err)
	}
	return cmd
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	redisOpts, err := cfg.Broker.RedisOptions()
	if err != nil {
		return err
	}
	dedupe := store.NewRedisDedupeStore(redisOpts)
	defer func() {
		if err := dedupe.Close(); err != nil {
			logger.Warn("dedupe store close failed", zap.Error(err))
		}
	}()

	var writer graphWriter
	if cfg.Neo4j.Enabled() {
		driver, err := graph.NewDriver(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password)
		if err != nil {
			return err
		}
		questionWriter := graph.NewQuestionWriter(driver, logger)
		defer func() {
			if err := questionWriter.Close(context.Background()); err != nil {
				logger.Warn("neo4j close failed", zap.Error(err))
			}
		}()
		writer = questionWriter
		logger.Info("graph writes enabled", zap.String("uri", cfg.Neo4j.URI))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	handler := newJobHandler(dedupe, writer, cfg.Worker.DedupeTTL, metrics.NewWorker(reg), logger)
	metrics.Serve(ctx, cfg.Metrics.Addr, reg, logger)

	consumers := make([]broker.Consumer, 0, cfg.Worker.Concurrency)
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		c, err := newConsumer(cfg.Broker, fmt.Sprintf("%s-%d", consumerPrefix(), i+1), logger)
		if err != nil {
			return err
		}
		consumers = append(consumers, c)
	}
	logger.Info("worker consuming",
		zap.String("broker", cfg.Broker.Kind),
		zap.String("topic", cfg.Broker.Topic),
		zap.String("group", cfg.Broker.Group),
		zap.Int("concurrency", len(consumers)))

	return runConsumers(ctx, consumers, handler.Handle, logger)
}

// runConsumers runs every consumer until ctx ends and closes them all. The
// first consumer error cancels the rest.
func runConsumers(ctx context.Context, consumers []broker.Consumer, handle broker.Handler, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, c := range consumers {
		wg.Add(1)
		go func(c broker.Consumer) {
			defer wg.Done()
			if err := c.Run(ctx, handle); err != nil && !errors.Is(err, context.Canceled) {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				cancel()
			}
		}(c)
	}
	wg.Wait()

	for _, c := range consumers {
		if err := c.Close(); err != nil {
			logger.Warn("consumer close failed", zap.Error(err))
		}
	}
	return firstErr
}

func newConsumer(cfg config.BrokerConfig, name string, logger *zap.Logger) (broker.Consumer, error) {
	switch cfg.Kind {
	case config.BrokerKafka:
		dlq := &kafka.Writer{
			Addr:                   kafka.TCP(cfg.KafkaBroker),
			Topic:                  cfg.Topic + ".failed",
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: false,
		}
		return broker.NewKafkaConsumer(cfg.KafkaBroker, cfg.Topic, cfg.Group, broker.KafkaConsumerOptions{DeadLetter: dlq}, logger), nil
	case config.BrokerRedis:
		opts, err := cfg.RedisOptions()
		if err != nil {
			return nil, err
		}
		return broker.NewRedisStreamConsumer(redis.NewClient(opts), broker.RedisConsumerOptions{
			Stream:   cfg.Topic,
			Group:    cfg.Group,
			Consumer: name,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported broker kind %q", cfg.Kind)
	}
}

// consumerPrefix names this process's consumers; HOSTNAME is the pod name under Kubernetes.
func consumerPrefix() string {
	if host := os.Getenv("HOSTNAME"); host != "" {
		return host
	}
	return "worker"
}
