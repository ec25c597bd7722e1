package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/docrows/internal/eventlog"
)

const namespace = "docrows"

// Extraction outcomes used as label values.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeCanceled = "canceled"
)

// Recorder turns workflow events and extraction calls into Prometheus metrics on its own
// registry.
type Recorder struct {
	registry    *prometheus.Registry
	events      *prometheus.CounterVec
	extractions *prometheus.HistogramVec
	documents   *prometheus.CounterVec
}

// NewRecorder registers the workflow collectors plus the Go runtime collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_events_total",
				Help:      "Event log entries by action and status.",
			},
			[]string{"action", "status"},
		),
		extractions: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "extraction_duration_seconds",
				Help:      "Duration of extraction calls by outcome.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
			},
			[]string{"outcome"},
		),
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extraction_documents_total",
				Help:      "Documents submitted for extraction by outcome.",
			},
			[]string{"outcome"},
		),
	}
	r.registry.MustRegister(
		r.events,
		r.extractions,
		r.documents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Observe counts one event log entry.
func (r *Recorder) Observe(e eventlog.Entry) {
	r.events.WithLabelValues(e.Action, string(e.Status)).Inc()
}

var _ eventlog.Observer = (*Recorder)(nil)

// ObserveExtraction records one extraction call.
func (r *Recorder) ObserveExtraction(documents int, elapsed time.Duration, err error) {
	outcome := Outcome(err)
	r.extractions.WithLabelValues(outcome).Observe(elapsed.Seconds())
	r.documents.WithLabelValues(outcome).Add(float64(documents))
}

// RegisterCache exposes hit and miss counts of an extraction cache.
func (r *Recorder) RegisterCache(stats func() (hits, misses uint64)) error {
	hits := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_cache_hits_total",
		Help:      "Per-document extraction cache hits.",
	}, func() float64 {
		h, _ := stats()
		return float64(h)
	})
	misses := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_cache_misses_total",
		Help:      "Per-document extraction cache misses.",
	}, func() float64 {
		_, m := stats()
		return float64(m)
	})
	if err := r.registry.Register(hits); err != nil {
		return err
	}
	return r.registry.Register(misses)
}

// Registry is the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Outcome classifies an extraction error into a label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	}
	return OutcomeError
}
