// Package config loads process configuration from defaults, an optional
// YAML file, environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"interview-harvester/internal/broker"
)

const (
	SinkQueue = "queue"
	SinkFile  = "file"

	BrokerRedis = "redis"
	BrokerKafka = "kafka"
)

// DefaultSeeds are the entry points crawled when none are configured.
var DefaultSeeds = []string{
	"https://www.glassdoor.com/Interview/index.htm",
	"https://leetcode.com/discuss/interview-question",
	"https://www.geeksforgeeks.org/interview-preparation/",
	"https://www.indeed.com/career-advice/interviewing",
	"https://www.interviewbit.com/interview-questions/",
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Seeds   []string
	Crawl   CrawlConfig
	Render  RenderConfig
	Dedup   DedupConfig
	Sink    SinkConfig
	Broker  BrokerConfig
	Status  StatusConfig
	Worker  WorkerConfig
	Neo4j   Neo4jConfig
	Log     LogConfig
	Metrics MetricsConfig
	API     APIConfig
}

type CrawlConfig struct {
	MaxPages        int
	PolitenessDelay time.Duration
}

type RenderConfig struct {
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	ExecPath          string
}

type DedupConfig struct {
	VisitedPath   string
	FlushInterval time.Duration
}

type SinkConfig struct {
	Strategy   string
	OutputPath string
}

type BrokerConfig struct {
	Kind            string
	RedisURL        string
	KafkaBroker     string
	Topic           string
	Group           string
	MaxAttempts     int
	RemoveOnSuccess bool
}

// RetryPolicy is the policy attached to every submitted job.
func (b BrokerConfig) RetryPolicy() broker.RetryPolicy {
	return broker.RetryPolicy{MaxAttempts: b.MaxAttempts, RemoveOnSuccess: b.RemoveOnSuccess}
}

// RedisOptions parses RedisURL.
func (b BrokerConfig) RedisOptions() (*redis.Options, error) {
	opts, err := redis.ParseURL(b.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}

type StatusConfig struct {
	Enabled bool
	TTL     time.Duration
}

type WorkerConfig struct {
	// Concurrency is the number of consumers run side by side in one process.
	Concurrency int
	// DedupeTTL bounds how long a stored question blocks duplicates. Zero keeps keys forever.
	DedupeTTL time.Duration
}

type Neo4jConfig struct {
	URI      string
	User     string
	Password string
}

// Enabled reports whether a graph database is configured.
func (n Neo4jConfig) Enabled() bool { return n.URI != "" }

type LogConfig struct {
	Level string
	File  string
}

type MetricsConfig struct {
	Addr string
}

type APIConfig struct {
	Addr string
}

var envBindings = map[string]string{
	"seeds":                     "SEED_URLS",
	"crawl.max_pages":           "MAX_PAGES",
	"crawl.politeness_delay":    "POLITENESS_DELAY",
	"render.navigation_timeout": "NAVIGATION_TIMEOUT",
	"render.settle_delay":       "SETTLE_DELAY",
	"render.exec_path":          "CHROME_PATH",
	"dedup.visited_path":        "VISITED_PATH",
	"dedup.flush_interval":      "FLUSH_INTERVAL",
	"sink.strategy":             "SINK_STRATEGY",
	"sink.output_path":          "OUTPUT_PATH",
	"broker.kind":               "BROKER_KIND",
	"broker.redis_url":          "REDIS_URL",
	"broker.kafka_broker":       "KAFKA_BROKER",
	"broker.topic":              "QUEUE_NAME",
	"broker.max_attempts":       "QUEUE_MAX_ATTEMPTS",
	"broker.remove_on_success":  "QUEUE_REMOVE_ON_SUCCESS",
	"broker.group":              "QUEUE_GROUP",
	"status.enabled":            "STATUS_ENABLED",
	"status.ttl":                "STATUS_TTL",
	"worker.dedupe_ttl":         "WORKER_DEDUPE_TTL",
	"worker.concurrency":        "WORKER_CONCURRENCY",
	"neo4j.uri":                 "NEO4J_URI",
	"neo4j.user":                "NEO4J_USER",
	"neo4j.password":            "NEO4J_PASSWORD",
	"log.level":                 "LOG_LEVEL",
	"log.file":                  "LOG_FILE",
	"metrics.addr":              "METRICS_ADDR",
	"api.addr":                  "API_ADDR",
}

// New returns a viper instance with defaults and environment bindings applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	for key, env := range envBindings {
		// BindEnv only fails without a key.
		_ = v.BindEnv(key, env)
	}
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("seeds", DefaultSeeds)
	v.SetDefault("crawl.max_pages", 1000)
	v.SetDefault("crawl.politeness_delay", 2*time.Second)
	v.SetDefault("render.navigation_timeout", 30*time.Second)
	v.SetDefault("render.settle_delay", 2*time.Second)
	v.SetDefault("render.exec_path", "")
	v.SetDefault("dedup.visited_path", "visitedUrls.json")
	v.SetDefault("dedup.flush_interval", 60*time.Second)
	v.SetDefault("sink.strategy", SinkQueue)
	v.SetDefault("sink.output_path", "scraped_data/interview_questions.json")
	v.SetDefault("broker.kind", BrokerRedis)
	v.SetDefault("broker.redis_url", "redis://127.0.0.1:6379")
	v.SetDefault("broker.kafka_broker", "localhost:9092")
	v.SetDefault("broker.topic", broker.DefaultStream)
	v.SetDefault("broker.max_attempts", broker.DefaultRetryPolicy.MaxAttempts)
	v.SetDefault("broker.remove_on_success", broker.DefaultRetryPolicy.RemoveOnSuccess)
	v.SetDefault("broker.group", "interview-workers")
	v.SetDefault("status.enabled", true)
	v.SetDefault("status.ttl", 24*time.Hour)
	v.SetDefault("worker.dedupe_ttl", time.Duration(0))
	v.SetDefault("worker.concurrency", 1)
	v.SetDefault("neo4j.uri", "")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "neo4j")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("api.addr", ":8080")
}

// BindFlags maps command-line flags onto config keys. Only flags the
// user set override lower-precedence sources.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		f := flags.Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flag)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load reads configFile when set and returns the validated configuration.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Seeds: stringList(v.Get("seeds")),
		Crawl: CrawlConfig{
			MaxPages:        v.GetInt("crawl.max_pages"),
			PolitenessDelay: v.GetDuration("crawl.politeness_delay"),
		},
		Render: RenderConfig{
			NavigationTimeout: v.GetDuration("render.navigation_timeout"),
			SettleDelay:       v.GetDuration("render.settle_delay"),
			ExecPath:          v.GetString("render.exec_path"),
		},
		Dedup: DedupConfig{
			VisitedPath:   v.GetString("dedup.visited_path"),
			FlushInterval: v.GetDuration("dedup.flush_interval"),
		},
		Sink: SinkConfig{
			Strategy:   strings.ToLower(v.GetString("sink.strategy")),
			OutputPath: v.GetString("sink.output_path"),
		},
		Broker: BrokerConfig{
			Kind:            strings.ToLower(v.GetString("broker.kind")),
			RedisURL:        v.GetString("broker.redis_url"),
			KafkaBroker:     v.GetString("broker.kafka_broker"),
			Topic:           v.GetString("broker.topic"),
			Group:           v.GetString("broker.group"),
			MaxAttempts:     v.GetInt("broker.max_attempts"),
			RemoveOnSuccess: v.GetBool("broker.remove_on_success"),
		},
		Status: StatusConfig{
			Enabled: v.GetBool("status.enabled"),
			TTL:     v.GetDuration("status.ttl"),
		},
		Worker: WorkerConfig{
			Concurrency: v.GetInt("worker.concurrency"),
			DedupeTTL:   v.GetDuration("worker.dedupe_ttl"),
		},
		Neo4j: Neo4jConfig{
			URI:      v.GetString("neo4j.uri"),
			User:     v.GetString("neo4j.user"),
			Password: v.GetString("neo4j.password"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
		Metrics: MetricsConfig{Addr: v.GetString("metrics.addr")},
		API:     APIConfig{Addr: v.GetString("api.addr")},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case len(c.Seeds) == 0:
		return fmt.Errorf("%w: at least one seed url is required", ErrInvalid)
	case c.Crawl.MaxPages <= 0:
		return fmt.Errorf("%w: crawl.max_pages must be positive, got %d", ErrInvalid, c.Crawl.MaxPages)
	case c.Crawl.PolitenessDelay < 0, c.Render.NavigationTimeout < 0, c.Render.SettleDelay < 0,
		c.Dedup.FlushInterval < 0, c.Status.TTL < 0, c.Worker.DedupeTTL < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalid)
	case c.Sink.Strategy != SinkQueue && c.Sink.Strategy != SinkFile:
		return fmt.Errorf("%w: sink.strategy must be %q or %q, got %q", ErrInvalid, SinkQueue, SinkFile, c.Sink.Strategy)
	case c.Broker.Kind != BrokerRedis && c.Broker.Kind != BrokerKafka:
		return fmt.Errorf("%w: broker.kind must be %q or %q, got %q", ErrInvalid, BrokerRedis, BrokerKafka, c.Broker.Kind)
	case c.Broker.MaxAttempts < 1:
		return fmt.Errorf("%w: broker.max_attempts must be at least 1, got %d", ErrInvalid, c.Broker.MaxAttempts)
	case c.Worker.Concurrency < 1:
		return fmt.Errorf("%w: worker.concurrency must be at least 1, got %d", ErrInvalid, c.Worker.Concurrency)
	case c.Broker.Topic == "":
		return fmt.Errorf("%w: broker.topic is required", ErrInvalid)
	case c.Dedup.VisitedPath == "":
		return fmt.Errorf("%w: dedup.visited_path is required", ErrInvalid)
	}
	return nil
}

// stringList accepts a YAML list, a flag slice or a comma separated string.
func stringList(raw any) []string {
	var parts []string
	switch val := raw.(type) {
	case string:
		parts = strings.Split(val, ",")
	case []string:
		parts = val
	case []any:
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		// a single flag value may still carry commas
		for _, s := range strings.Split(p, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
