// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics provides Prometheus metrics for runs and the event sink.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Label cardinality is bounded: no run ids or paths in labels.

// Recorder owns the run metrics on its own registry. A nil *Recorder is a
// valid no-op recorder.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
	eventsTotal   *prometheus.CounterVec
	sinkFailures  prometheus.Counter
	linesTotal    prometheus.Counter
	runDuration   *prometheus.HistogramVec
}

// NewRecorder registers the run metrics on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,

		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dualentry_runs_total",
			Help: "Total number of finished runs, by result.",
		}, []string{"result"}),

		failuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dualentry_run_failures_total",
			Help: "Total number of failed or cancelled runs, by reason code.",
		}, []string{"reason_code"}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dualentry_events_total",
			Help: "Total number of lifecycle events emitted, by event kind.",
		}, []string{"event"}),

		sinkFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dualentry_event_sink_failures_total",
			Help: "Total number of event log writes that failed.",
		}),

		linesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dualentry_lines_processed_total",
			Help: "Total number of output lines written by workflows.",
		}),

		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dualentry_run_duration_seconds",
			Help:    "Wall-clock duration of runs, by result.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"result"}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// IncEvent counts one emitted lifecycle event.
func (r *Recorder) IncEvent(event string) {
	if r == nil {
		return
	}
	r.eventsTotal.WithLabelValues(event).Inc()
}

// IncSinkFailure counts one failed event log write.
func (r *Recorder) IncSinkFailure() {
	if r == nil {
		return
	}
	r.sinkFailures.Inc()
}

// ObserveRun records a finished run. reasonCode is only counted for
// non-successful runs.
func (r *Recorder) ObserveRun(result, reasonCode string, d time.Duration, lines int) {
	if r == nil {
		return
	}
	r.runsTotal.WithLabelValues(result).Inc()
	r.runDuration.WithLabelValues(result).Observe(d.Seconds())
	if lines > 0 {
		r.linesTotal.Add(float64(lines))
	}
	if reasonCode != "" && reasonCode != "COMPLETED" {
		r.failuresTotal.WithLabelValues(reasonCode).Inc()
	}
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// RunTotals returns finished run counts keyed by result.
func (r *Recorder) RunTotals() (map[string]int, error) {
	totals := map[string]int{}
	if r == nil {
		return totals, nil
	}
	families, err := r.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if mf.GetName() != "dualentry_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			totals[labelValue(m, "result")] = int(m.GetCounter().GetValue())
		}
	}
	return totals, nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// EventCounter returns the counter for one event kind. A nil recorder
// returns a detached counter that stays at zero.
func (r *Recorder) EventCounter(event string) prometheus.Counter {
	if r == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dualentry_events_total",
			Help:        "Total number of lifecycle events emitted, by event kind.",
			ConstLabels: prometheus.Labels{"event": event},
		})
	}
	return r.eventsTotal.WithLabelValues(event)
}
