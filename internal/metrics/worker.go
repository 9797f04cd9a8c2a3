package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker holds the queue consumer collectors.
type Worker struct {
	JobsReceived       prometheus.Counter
	JobsSucceeded      prometheus.Counter
	JobsFailed         prometheus.Counter
	QuestionsStored    prometheus.Counter
	QuestionsDuplicate prometheus.Counter
	JobDuration        prometheus.Histogram
}

// NewWorker registers worker collectors on reg, or the default registerer when nil.
func NewWorker(reg prometheus.Registerer) *Worker {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "worker",
			Name:      name,
			Help:      help,
		})
	}
	return &Worker{
		JobsReceived:       counter("jobs_received_total", "Deliveries handed to the worker"),
		JobsSucceeded:      counter("jobs_succeeded_total", "Deliveries handled without error"),
		JobsFailed:         counter("jobs_failed_total", "Delivery attempts that returned an error"),
		QuestionsStored:    counter("questions_stored_total", "Questions seen for the first time and written"),
		QuestionsDuplicate: counter("questions_duplicate_total", "Questions skipped because they were already stored"),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "worker",
			Name:      "job_duration_seconds",
			Help:      "Time spent handling one delivery",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
