// Package metrics exposes Prometheus collectors for the capture pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lifeos"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	cycles          *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	captures        *prometheus.CounterVec
	itemsCreated    *prometheus.CounterVec
	calendarEvents  *prometheus.CounterVec
	extractAttempts *prometheus.CounterVec
	httpCaptures    *prometheus.CounterVec
}

// MustNew registers the collectors with reg and panics on conflicts.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "cycles_total",
			Help:      "Inbox processing cycles by result.",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "cycle_duration_seconds",
			Help:      "Time spent in one inbox processing cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "captures_total",
			Help:      "Captures handled by outcome.",
		}, []string{"outcome"}),
		itemsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "items_created_total",
			Help:      "Structured items written by destination.",
		}, []string{"destination"}),
		calendarEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calendar",
			Name:      "artifacts_total",
			Help:      "Calendar artifact operations by result.",
		}, []string{"op", "result"}),
		extractAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "attempts_total",
			Help:      "Model extraction attempts by result.",
		}, []string{"result"}),
		httpCaptures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "captures_total",
			Help:      "HTTP capture requests by status code class.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.cycles, m.cycleDuration, m.captures, m.itemsCreated, m.calendarEvents, m.extractAttempts, m.httpCaptures)
	return m
}

func (m *Metrics) ObserveCycle(err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cycles.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

// CaptureOutcome counts a finished capture: processed or failed.
func (m *Metrics) CaptureOutcome(outcome string) {
	if m == nil {
		return
	}
	m.captures.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ItemCreated(destination string) {
	if m == nil {
		return
	}
	m.itemsCreated.WithLabelValues(destination).Inc()
}

func (m *Metrics) CalendarArtifact(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.calendarEvents.WithLabelValues(op, result).Inc()
}

func (m *Metrics) ExtractAttempt(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.extractAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) HTTPCapture(status int) {
	if m == nil {
		return
	}
	class := "2xx"
	switch {
	case status >= 500:
		class = "5xx"
	case status >= 400:
		class = "4xx"
	}
	m.httpCaptures.WithLabelValues(class).Inc()
}
