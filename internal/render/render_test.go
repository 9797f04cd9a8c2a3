package render

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderErrorUnwrap(t *testing.T) {
	err := error(&RenderError{URL: "https://example.com", Stage: StageNavigate, Err: context.DeadlineExceeded})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "https://example.com")
	assert.Contains(t, err.Error(), StageNavigate)
}

func TestNewChromeRendererDefaults(t *testing.T) {
	r := NewChromeRenderer(Options{SettleDelay: -1}, nil)
	t.Cleanup(func() { _ = r.Close() })

	assert.Equal(t, DefaultNavigationTimeout, r.opts.NavigationTimeout)
	assert.Zero(t, r.opts.SettleDelay)
}

func TestOpenWithCancelledContext(t *testing.T) {
	r := NewChromeRenderer(Options{}, nil)
	t.Cleanup(func() { _ = r.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Open(ctx, "https://example.com")
	var rerr *RenderError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, StageNavigate, rerr.Stage)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenReportsBrowserLaunchFailureOnce(t *testing.T) {
	r := NewChromeRenderer(Options{ExecPath: "/nonexistent/chrome-for-tests"}, nil)
	t.Cleanup(func() { _ = r.Close() })

	_, err := r.Open(context.Background(), "https://example.com/a")
	var first *RenderError
	require.True(t, errors.As(err, &first))
	assert.Equal(t, StageNavigate, first.Stage)
	require.Error(t, first.Err)

	_, err = r.Open(context.Background(), "https://example.com/b")
	var second *RenderError
	require.True(t, errors.As(err, &second))
	assert.Equal(t, "https://example.com/b", second.URL)
	assert.Equal(t, first.Err, second.Err, "launch is attempted once")
}
