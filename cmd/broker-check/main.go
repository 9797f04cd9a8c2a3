package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"interview-harvester/internal/broker"
	"interview-harvester/internal/config"
)

func main() {
	cfg, err := config.Load(config.New(), os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := check(ctx, os.Stdout, cfg.Broker); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func check(ctx context.Context, out io.Writer, cfg config.BrokerConfig) error {
	switch cfg.Kind {
	case config.BrokerKafka:
		return checkKafka(ctx, out, cfg.KafkaBroker, cfg.Topic)
	case config.BrokerRedis:
		opts, err := cfg.RedisOptions()
		if err != nil {
			return err
		}
		client := redis.NewClient(opts)
		defer client.Close()
		return checkRedis(ctx, out, client, cfg.Topic)
	default:
		return fmt.Errorf("unsupported broker kind %q", cfg.Kind)
	}
}

func checkKafka(ctx context.Context, out io.Writer, addr, topic string) error {
	conn, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka at %s: %w", addr, err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(topic)
	if err != nil {
		return fmt.Errorf("failed to read metadata for %s: %w", topic, err)
	}
	fmt.Fprintf(out, "connected to Kafka at %s (topic %s, %d partitions)\n", addr, topic, len(partitions))
	return nil
}

func checkRedis(ctx context.Context, out io.Writer, client *redis.Client, stream string) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", client.Options().Addr, err)
	}
	pending, err := client.XLen(ctx, stream).Result()
	if err != nil {
		return fmt.Errorf("failed to read stream %s: %w", stream, err)
	}
	failed, err := client.XLen(ctx, broker.FailedStream(stream)).Result()
	if err != nil {
		return fmt.Errorf("failed to read stream %s: %w", broker.FailedStream(stream), err)
	}
	fmt.Fprintf(out, "connected to Redis at %s (stream %s: %d entries, %d failed)\n", client.Options().Addr, stream, pending, failed)
	return nil
}
