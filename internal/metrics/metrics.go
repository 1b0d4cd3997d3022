// Package metrics holds the pipeline's Prometheus collectors.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	FetchedJobs    *prometheus.GaugeVec
	SourceFailures *prometheus.CounterVec
	MergedJobs     *prometheus.GaugeVec
	Lookups        *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	LastSuccess    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		FetchedJobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobradar_source_fetched_jobs",
			Help: "Postings returned by a source in the last run, after the role filter.",
		}, []string{"source"}),
		SourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobradar_source_failures_total",
			Help: "Runs in which a source failed to fetch.",
		}, []string{"source"}),
		MergedJobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobradar_source_merged_jobs",
			Help: "Postings published for a source after merge and retention.",
		}, []string{"source"}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobradar_enrichment_lookups_total",
			Help: "Compensation lookups by outcome.",
		}, []string{"result"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobradar_run_duration_seconds",
			Help:    "Wall time of a pipeline run.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobradar_last_success_timestamp_seconds",
			Help: "Unix time of the last run that published an artifact.",
		}),
	}
	m.reg.MustRegister(m.FetchedJobs, m.SourceFailures, m.MergedJobs, m.Lookups, m.RunDuration, m.LastSuccess)
	return m
}

// WithRuntime adds Go and process collectors, for long-running serve mode.
func (m *Metrics) WithRuntime() *Metrics {
	m.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(d time.Duration, ok bool, at time.Time) {
	m.RunDuration.Observe(d.Seconds())
	if ok {
		m.LastSuccess.Set(float64(at.Unix()))
	}
}

func (m *Metrics) AddLookups(results map[string]int) {
	for r, n := range results {
		if n > 0 {
			m.Lookups.WithLabelValues(r).Add(float64(n))
		}
	}
}

func (m *Metrics) Gatherer() prometheus.Gatherer { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
