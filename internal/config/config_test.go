package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultSeeds, cfg.Seeds)
	assert.Equal(t, 1000, cfg.Crawl.MaxPages)
	assert.Equal(t, 2*time.Second, cfg.Crawl.PolitenessDelay)
	assert.Equal(t, 30*time.Second, cfg.Render.NavigationTimeout)
	assert.Equal(t, 2*time.Second, cfg.Render.SettleDelay)
	assert.Equal(t, "visitedUrls.json", cfg.Dedup.VisitedPath)
	assert.Equal(t, time.Minute, cfg.Dedup.FlushInterval)
	assert.Equal(t, SinkQueue, cfg.Sink.Strategy)
	assert.Equal(t, "scraped_data/interview_questions.json", cfg.Sink.OutputPath)
	assert.Equal(t, BrokerRedis, cfg.Broker.Kind)
	assert.Equal(t, "interview-questions", cfg.Broker.Topic)
	assert.Equal(t, 3, cfg.Broker.MaxAttempts)
	assert.True(t, cfg.Broker.RemoveOnSuccess)
	assert.True(t, cfg.Status.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Status.TTL)
	assert.False(t, cfg.Neo4j.Enabled())
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("SEED_URLS", "https://a.example/, https://b.example/ ,")
	t.Setenv("MAX_PAGES", "25")
	t.Setenv("POLITENESS_DELAY", "500ms")
	t.Setenv("SINK_STRATEGY", "FILE")
	t.Setenv("QUEUE_REMOVE_ON_SUCCESS", "false")
	t.Setenv("NEO4J_URI", "bolt://localhost:7687")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/", "https://b.example/"}, cfg.Seeds)
	assert.Equal(t, 25, cfg.Crawl.MaxPages)
	assert.Equal(t, 500*time.Millisecond, cfg.Crawl.PolitenessDelay)
	assert.Equal(t, SinkFile, cfg.Sink.Strategy)
	assert.False(t, cfg.Broker.RetryPolicy().RemoveOnSuccess)
	assert.True(t, cfg.Neo4j.Enabled())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvester.yaml")
	content := `
seeds:
  - https://one.example/
  - https://two.example/
crawl:
  max_pages: 7
broker:
  kind: kafka
  max_attempts: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://one.example/", "https://two.example/"}, cfg.Seeds)
	assert.Equal(t, 7, cfg.Crawl.MaxPages)
	assert.Equal(t, BrokerKafka, cfg.Broker.Kind)
	assert.Equal(t, 5, cfg.Broker.RetryPolicy().MaxAttempts)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("MAX_PAGES", "25")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringArray("seed", nil, "")
	flags.Int("max-pages", 0, "")
	flags.String("sink", "", "")
	require.NoError(t, flags.Parse([]string{"--seed", "https://x.example/", "--seed", "https://y.example/", "--max-pages", "3"}))

	v := New()
	require.NoError(t, BindFlags(v, flags, map[string]string{
		"seed":      "seeds",
		"max-pages": "crawl.max_pages",
		"sink":      "sink.strategy",
	}))
	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.example/", "https://y.example/"}, cfg.Seeds)
	assert.Equal(t, 3, cfg.Crawl.MaxPages)
	assert.Equal(t, SinkQueue, cfg.Sink.Strategy, "unset flag keeps the default")
}

func TestBindUnknownFlag(t *testing.T) {
	err := BindFlags(New(), pflag.NewFlagSet("test", pflag.ContinueOnError), map[string]string{"nope": "seeds"})
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero budget", map[string]string{"MAX_PAGES": "0"}},
		{"bad strategy", map[string]string{"SINK_STRATEGY": "stdout"}},
		{"bad broker", map[string]string{"BROKER_KIND": "rabbit"}},
		{"no attempts", map[string]string{"QUEUE_MAX_ATTEMPTS": "0"}},
		{"negative delay", map[string]string{"POLITENESS_DELAY": "-1s"}},
		{"blank seeds", map[string]string{"SEED_URLS": " , "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, val := range tt.env {
				t.Setenv(k, val)
			}
			_, err := Load(New(), "")
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestRedisOptions(t *testing.T) {
	opts, err := BrokerConfig{RedisURL: "redis://:secret@cache:6380/2"}.RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = BrokerConfig{RedisURL: "http://nope"}.RedisOptions()
	assert.Error(t, err)
}

func TestStringList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, stringList("a,b"))
	assert.Equal(t, []string{"a", "b", "c"}, stringList([]string{"a", "b,c"}))
	assert.Equal(t, []string{"a", "1"}, stringList([]any{"a", 1}))
	assert.Empty(t, stringList(nil))
}
