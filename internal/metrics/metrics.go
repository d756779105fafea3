// Package metrics counts repository operations in a prometheus registry.
//
// lockbox is a short-lived CLI, so nothing is served over HTTP. When a
// textfile path is configured the registry is written out after each
// command for the node-exporter textfile collector to pick up.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultWarning = "warning"
)

// Recorder holds the lockbox collectors. A nil Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	Operations       *prometheus.CounterVec
	Duration         *prometheus.HistogramVec
	Credentials      prometheus.Gauge
	CopyBackFailures prometheus.Counter
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lockbox_operations_total",
				Help: "Total count of repository operations by result",
			},
			[]string{"op", "result"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lockbox_operation_duration_seconds",
				Help:    "Time spent in repository operations",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 7),
			},
			[]string{"op"},
		),
		Credentials: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lockbox_credentials",
				Help: "Number of credentials in the open repository",
			},
		),
		CopyBackFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lockbox_copy_back_failures_total",
				Help: "Total count of saves that could not be copied back to their original location",
			},
		),
	}

	r.registry.MustRegister(r.Operations, r.Duration, r.Credentials, r.CopyBackFailures)
	return r
}

// Registry exposes the underlying registry as a gatherer.
func (r *Recorder) Registry() prometheus.Gatherer {
	return r.registry
}

// Observe records one finished operation.
func (r *Recorder) Observe(op, result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.Operations.WithLabelValues(op, result).Inc()
	r.Duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (r *Recorder) SetCredentials(n int) {
	if r == nil {
		return
	}
	r.Credentials.Set(float64(n))
}

func (r *Recorder) CopyBackFailed() {
	if r == nil {
		return
	}
	r.CopyBackFailures.Inc()
}

// WriteTextfile writes the registry in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
