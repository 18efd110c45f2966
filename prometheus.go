package sigdex

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports ingest metrics through a prometheus registry.
type PrometheusCollector struct {
	addsTotal     *prometheus.CounterVec
	addLatency    prometheus.Histogram
	deletesTotal  *prometheus.CounterVec
	deleteLatency prometheus.Histogram
	buffersInUse  prometheus.Gauge
}

var _ MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collectors and registers them with reg.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	c := &PrometheusCollector{
		addsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigdex_adds_total",
				Help: "Total documents submitted, by outcome.",
			},
			[]string{"status"},
		),
		addLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sigdex_add_duration_seconds",
				Help:    "Add latency in seconds.",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
			},
		),
		deletesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigdex_deletes_total",
				Help: "Total delete requests, by outcome (deleted, missing, error).",
			},
			[]string{"status"},
		),
		deleteLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sigdex_delete_duration_seconds",
				Help:    "Delete latency in seconds.",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
			},
		),
		buffersInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sigdex_slice_buffers_in_use",
				Help: "Slice buffers currently allocated and not yet recycled.",
			},
		),
	}

	for _, collector := range []prometheus.Collector{
		c.addsTotal, c.addLatency, c.deletesTotal, c.deleteLatency, c.buffersInUse,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordAdd implements MetricsCollector.
func (c *PrometheusCollector) RecordAdd(duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.addsTotal.WithLabelValues(status).Inc()
	c.addLatency.Observe(duration.Seconds())
}

// RecordDelete implements MetricsCollector.
func (c *PrometheusCollector) RecordDelete(duration time.Duration, found bool, err error) {
	status := "deleted"
	switch {
	case err != nil:
		status = "error"
	case !found:
		status = "missing"
	}
	c.deletesTotal.WithLabelValues(status).Inc()
	c.deleteLatency.Observe(duration.Seconds())
}

// RecordBuffersInUse implements MetricsCollector.
func (c *PrometheusCollector) RecordBuffersInUse(n int) {
	c.buffersInUse.Set(float64(n))
}
