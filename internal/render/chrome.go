package render

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultSettleDelay       = 2 * time.Second
)

// Options tune ChromeRenderer.
type Options struct {
	// NavigationTimeout bounds navigation until <body> is ready.
	NavigationTimeout time.Duration
	// SettleDelay is waited after navigation so scripts can populate the page.
	SettleDelay time.Duration
	// ExecPath overrides the browser binary; empty means auto-detect.
	ExecPath string
}

// ChromeRenderer renders pages with a single shared headless browser,
// opening one tab per page.
type ChromeRenderer struct {
	opts          Options
	logger        *zap.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	startOnce sync.Once
	startErr  error
}

// NewChromeRenderer prepares the browser allocator. The browser process is
// started lazily by the first Open.
func NewChromeRenderer(opts Options, logger *zap.Logger) *ChromeRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	return &ChromeRenderer{
		opts:          opts,
		logger:        logger.With(zap.String("component", "renderer")),
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}
}

// Open navigates a fresh tab to url. Cancelling ctx closes the tab and
// abandons the render.
func (r *ChromeRenderer) Open(ctx context.Context, url string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, &RenderError{URL: url, Stage: StageNavigate, Err: err}
	}

	if err := r.start(); err != nil {
		return Page{}, &RenderError{URL: url, Stage: StageNavigate, Err: err}
	}

	// tabs created from a running browser context share its process
	tabCtx, tabCancel := chromedp.NewContext(r.browserCtx)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	// Allocate the tab before applying the timeout so the timeout only
	// bounds navigation, not the tab lifetime.
	if err := chromedp.Run(tabCtx); err != nil {
		return Page{}, &RenderError{URL: url, Stage: StageNavigate, Err: err}
	}

	navCtx, navCancel := context.WithTimeout(tabCtx, r.opts.NavigationTimeout)
	err := chromedp.Run(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body"))
	navCancel()
	if err != nil {
		return Page{}, &RenderError{URL: url, Stage: StageNavigate, Err: err}
	}

	if r.opts.SettleDelay > 0 {
		if err := chromedp.Run(tabCtx, chromedp.Sleep(r.opts.SettleDelay)); err != nil {
			return Page{}, &RenderError{URL: url, Stage: StageRead, Err: err}
		}
	}

	page := Page{URL: url}
	if err := chromedp.Run(tabCtx, chromedp.Title(&page.Title)); err != nil {
		r.logger.Debug("read title failed", zap.String("url", url), zap.Error(err))
	}
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &page.HTML)); err != nil {
		return Page{}, &RenderError{URL: url, Stage: StageRead, Err: err}
	}
	return page, nil
}

// start launches the shared browser on first use. A failed launch is
// remembered and returned by every later call.
func (r *ChromeRenderer) start() error {
	r.startOnce.Do(func() {
		r.startErr = chromedp.Run(r.browserCtx)
		if r.startErr != nil {
			r.logger.Error("browser launch failed", zap.Error(r.startErr))
			return
		}
		r.logger.Info("browser started")
	})
	return r.startErr
}

// Close shuts down the browser.
func (r *ChromeRenderer) Close() error {
	r.browserCancel()
	r.allocCancel()
	return nil
}
