// Package frontier drives the crawl: it pops URLs breadth-first, renders,
// classifies and extracts each page, and feeds discovered links back in.
package frontier

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"interview-harvester/internal/document"
	"interview-harvester/internal/metrics"
	"interview-harvester/internal/models"
	"interview-harvester/internal/render"
	"interview-harvester/internal/sink"
)

const (
	DefaultMaxPages        = 1000
	DefaultPolitenessDelay = 2 * time.Second
)

// VisitedStore is the durable set of processed URLs.
type VisitedStore interface {
	Has(url string) bool
	MarkVisited(url string) bool
	Len() int
}

// Classifier decides whether a page is worth extracting.
type Classifier interface {
	Classify(title, body string) bool
}

// QuestionExtractor pulls question records from a document.
type QuestionExtractor interface {
	Extract(doc document.Document, sourceURL string) models.ExtractedPage
}

// LinkExtractor pulls outbound links from a document.
type LinkExtractor interface {
	Extract(doc document.Document, baseURL string) []string
}

// Config bounds a run.
type Config struct {
	// MaxPages caps the number of pages rendered per run.
	MaxPages int
	// PolitenessDelay is waited after every processed page before the next
	// one is taken. Skipped pages do not wait. Zero disables it.
	PolitenessDelay time.Duration
}

// Deps are the collaborators the Manager drives.
type Deps struct {
	Renderer   render.Renderer
	Visited    VisitedStore
	Classifier Classifier
	Questions  QuestionExtractor
	Links      LinkExtractor
	Sink       sink.Dispatcher
	Metrics    *metrics.Crawler
	Logger     *zap.Logger
	// Progress, when set, is called after every page leaves the loop.
	Progress func(Stats)
}

// Stats summarises a run.
type Stats struct {
	Processed           int
	Skipped             int
	RenderFailures      int
	ParseFailures       int
	Relevant            int
	QuestionsFound      int
	QuestionsDispatched int
	DispatchFailures    int
	FrontierRemaining   int
}

// Manager owns the frontier for one run.
type Manager struct {
	cfg     Config
	deps    Deps
	logger *zap.Logger
	queue  *Queue
	stats  Stats
}

func NewManager(cfg Config, deps Deps) *Manager {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With(zap.String("component", "frontier")),
		queue:  NewQueue(),
	}
}

// Run crawls from seeds until the frontier empties, the page budget is
// spent or ctx is cancelled. On cancellation the in-flight render is
// abandoned and ctx's error is returned with the stats so far.
func (m *Manager) Run(ctx context.Context, seeds []string) (Stats, error) {
	m.queue.Push(seeds...)
	m.logger.Info("crawl started",
		zap.Int("seeds", len(seeds)),
		zap.Int("max_pages", m.cfg.MaxPages),
		zap.Duration("politeness_delay", m.cfg.PolitenessDelay),
		zap.Int("already_visited", m.deps.Visited.Len()))

	for m.queue.Len() > 0 && m.stats.Processed < m.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			return m.finish(err)
		}
		url, _ := m.queue.Pop()
		m.transition(url, models.PageStatePending)

		if m.deps.Visited.Has(url) {
			m.complete(url, models.PageStateSkipped)
			continue
		}
		if err := m.process(ctx, url); err != nil {
			return m.finish(err)
		}
		if err := m.pause(ctx); err != nil {
			return m.finish(err)
		}
	}
	return m.finish(nil)
}

// pause waits the politeness delay after a processed page. It returns at
// once when the loop is about to end anyway.
func (m *Manager) pause(ctx context.Context) error {
	if m.cfg.PolitenessDelay <= 0 || m.queue.Len() == 0 || m.stats.Processed >= m.cfg.MaxPages {
		return nil
	}
	timer := time.NewTimer(m.cfg.PolitenessDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// process takes one unvisited URL through the pipeline. Only cancellation
// is returned as an error; page-level failures end the page, not the run.
func (m *Manager) process(ctx context.Context, url string) error {
	// marked before rendering so a failing page is never retried this run
	m.deps.Visited.MarkVisited(url)
	m.stats.Processed++

	m.transition(url, models.PageStateRendering)
	start := time.Now()
	page, err := m.deps.Renderer.Open(ctx, url)
	if m.deps.Metrics != nil {
		m.deps.Metrics.RenderDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.stats.RenderFailures++
		m.logger.Warn("render failed", zap.String("url", url), zap.Error(err))
		m.complete(url, models.PageStateFailed)
		return nil
	}

	doc, err := document.Parse(url, page.HTML)
	if err != nil {
		m.stats.ParseFailures++
		m.logger.Warn("document unusable", zap.String("url", url), zap.Error(err))
		m.complete(url, models.PageStateFailed)
		return nil
	}

	m.transition(url, models.PageStateClassifying)
	title := page.Title
	if title == "" {
		title = doc.Title()
	}
	if m.deps.Classifier.Classify(title, doc.BodyText()) {
		m.stats.Relevant++
		m.transition(url, models.PageStateExtracting)
		m.extract(ctx, doc, url)
	}

	m.transition(url, models.PageStateExpanding)
	added := 0
	for _, link := range m.deps.Links.Extract(doc, url) {
		if m.deps.Visited.Has(link) {
			continue
		}
		m.queue.Push(link)
		added++
	}
	m.logger.Debug("links queued", zap.String("url", url), zap.Int("added", added), zap.Int("frontier", m.queue.Len()))
	m.complete(url, models.PageStateDone)
	return nil
}

func (m *Manager) extract(ctx context.Context, doc document.Document, url string) {
	extracted := m.deps.Questions.Extract(doc, url)
	found := len(extracted.Questions)
	m.stats.QuestionsFound += found
	if m.deps.Metrics != nil {
		m.deps.Metrics.QuestionsExtracted.Add(float64(found))
	}
	if found == 0 {
		m.logger.Debug("relevant page without questions", zap.String("url", url))
		return
	}

	n, err := m.deps.Sink.Dispatch(ctx, extracted)
	if err != nil {
		m.stats.DispatchFailures++
		if m.deps.Metrics != nil {
			m.deps.Metrics.DispatchFailures.Inc()
		}
		var derr *sink.DispatchError
		if errors.As(err, &derr) {
			m.logger.Error("dispatch failed", zap.String("url", url), zap.String("strategy", derr.Strategy), zap.Error(derr.Err))
		} else {
			m.logger.Error("dispatch failed", zap.String("url", url), zap.Error(err))
		}
		return
	}
	m.stats.QuestionsDispatched += n
	if m.deps.Metrics != nil {
		m.deps.Metrics.QuestionsDispatched.Add(float64(n))
	}
	m.logger.Info("questions dispatched", zap.String("url", url), zap.Int("found", found), zap.Int("accepted", n))
}

func (m *Manager) transition(url string, state models.PageState) {
	m.logger.Debug("page state", zap.String("url", url), zap.String("state", string(state)))
}

// complete records a page's terminal state.
func (m *Manager) complete(url string, state models.PageState) {
	m.transition(url, state)
	if state == models.PageStateSkipped {
		m.stats.Skipped++
	}
	if m.deps.Metrics != nil {
		m.deps.Metrics.PagesTotal.WithLabelValues(string(state)).Inc()
		m.deps.Metrics.FrontierSize.Set(float64(m.queue.Len()))
		m.deps.Metrics.VisitedSize.Set(float64(m.deps.Visited.Len()))
	}
	if m.deps.Progress != nil {
		m.deps.Progress(m.snapshot())
	}
}

func (m *Manager) snapshot() Stats {
	s := m.stats
	s.FrontierRemaining = m.queue.Len()
	return s
}

func (m *Manager) finish(err error) (Stats, error) {
	stats := m.snapshot()
	fields := []zap.Field{
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("render_failures", stats.RenderFailures),
		zap.Int("relevant", stats.Relevant),
		zap.Int("questions_found", stats.QuestionsFound),
		zap.Int("questions_dispatched", stats.QuestionsDispatched),
		zap.Int("frontier_remaining", stats.FrontierRemaining),
	}
	if err != nil {
		m.logger.Warn("crawl interrupted", append(fields, zap.Error(err))...)
		return stats, err
	}
	m.logger.Info("crawl finished", fields...)
	return stats, nil
}
