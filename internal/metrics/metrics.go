// Package metrics records task lifecycle measurements.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/slok/aico/internal/model"
)

// Recorder knows how to record task lifecycle metrics.
type Recorder interface {
	TaskCreated(taskType model.TaskType)
	TaskFinished(status model.TaskStatus, duration time.Duration)
}

// Noop recorder discards all measurements.
const Noop = noop(0)

type noop int

func (noop) TaskCreated(model.TaskType)                   {}
func (noop) TaskFinished(model.TaskStatus, time.Duration) {}

type prometheusRecorder struct {
	created  *prometheus.CounterVec
	finished *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewPrometheus returns a Recorder backed by Prometheus metrics registered
// on the given registry.
func NewPrometheus(reg prometheus.Registerer) Recorder {
	r := &prometheusRecorder{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aico",
			Subsystem: "tasks",
			Name:      "created_total",
			Help:      "Total number of created tasks.",
		}, []string{"type"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aico",
			Subsystem: "tasks",
			Name:      "finished_total",
			Help:      "Total number of finished tasks.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aico",
			Subsystem: "tasks",
			Name:      "duration_seconds",
			Help:      "Duration of finished tasks.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
	}

	reg.MustRegister(r.created, r.finished, r.duration)

	return r
}

func (r prometheusRecorder) TaskCreated(taskType model.TaskType) {
	r.created.WithLabelValues(string(taskType)).Inc()
}

func (r prometheusRecorder) TaskFinished(status model.TaskStatus, duration time.Duration) {
	r.finished.WithLabelValues(string(status)).Inc()
	r.duration.Observe(duration.Seconds())
}
