package dedup

import (
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSnapshotter struct {
	calls atomic.Int32
	err   error
}

func (c *countingSnapshotter) Flush() error {
	c.calls.Add(1)
	return c.err
}

func TestFlusherStopPerformsFinalFlush(t *testing.T) {
	target := &countingSnapshotter{}
	f, err := NewFlusher(target, time.Hour, nil)
	require.NoError(t, err)

	f.Start()
	require.NoError(t, f.Stop())
	assert.Equal(t, int32(1), target.calls.Load())
}

func TestFlusherStopReturnsFlushError(t *testing.T) {
	target := &countingSnapshotter{err: errors.New("disk full")}
	f, err := NewFlusher(target, time.Hour, nil)
	require.NoError(t, err)

	assert.EqualError(t, f.Stop(), "disk full")
}

func TestFlusherPeriodicFlush(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the cron schedule")
	}
	target := &countingSnapshotter{}
	f, err := NewFlusher(target, time.Second, nil)
	require.NoError(t, err)

	f.Start()
	assert.Eventually(t, func() bool { return target.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	require.NoError(t, f.Stop())
}

func TestFlusherPersistsVisitedSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visited.json")
	s := NewVisitedSet(path, nil)
	f, err := NewFlusher(s, time.Hour, nil)
	require.NoError(t, err)

	f.Start()
	s.MarkVisited("https://example.com/a")
	require.NoError(t, f.Stop())

	restored := NewVisitedSet(path, nil)
	_, err = restored.Restore()
	require.NoError(t, err)
	assert.True(t, restored.Has("https://example.com/a"))
}
