// Package metrics defines the Prometheus collectors for the crawler and
// worker and serves them over HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "interview_harvester"

// Crawler holds the crawl loop collectors.
type Crawler struct {
	PagesTotal          *prometheus.CounterVec
	RenderDuration      prometheus.Histogram
	QuestionsExtracted  prometheus.Counter
	QuestionsDispatched prometheus.Counter
	DispatchFailures    prometheus.Counter
	FrontierSize        prometheus.Gauge
	VisitedSize         prometheus.Gauge
}

// NewCrawler registers crawler collectors on reg, or the default registerer when nil.
func NewCrawler(reg prometheus.Registerer) *Crawler {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Crawler{
		PagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "crawler",
				Name:      "pages_total",
				Help:      "Pages taken off the frontier, by final state",
			},
			[]string{"state"},
		),
		RenderDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "crawler",
				Name:      "render_duration_seconds",
				Help:      "Time spent rendering a page, including the settle delay",
				Buckets:   []float64{0.5, 1, 2, 3, 5, 10, 20, 30, 60},
			},
		),
		QuestionsExtracted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "crawler",
				Name:      "questions_extracted_total",
				Help:      "Question records extracted from relevant pages",
			},
		),
		QuestionsDispatched: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "crawler",
				Name:      "questions_dispatched_total",
				Help:      "Question records accepted by the sink",
			},
		),
		DispatchFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "crawler",
				Name:      "dispatch_failures_total",
				Help:      "Pages the sink could not accept",
			},
		),
		FrontierSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "crawler",
				Name:      "frontier_size",
				Help:      "URLs waiting in the frontier",
			},
		),
		VisitedSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "crawler",
				Name:      "visited_size",
				Help:      "URLs in the visited set",
			},
		),
	}
}
