// Package metrics records per-run counters for the node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "gridhours_"

// Stage labels for row counts.
const (
	StageLoaded       = "loaded"
	StageDropped      = "dropped"
	StageDeduplicated = "deduplicated"
	StageOutput       = "output"
)

// Run holds the metrics of one pipeline run in its own registry.
type Run struct {
	registry *prometheus.Registry

	rows          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	peakHour      prometheus.Gauge
	peakFeedin    prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// NewRun registers a fresh set of run metrics.
func NewRun() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rows_total",
				Help: "Rows seen by pipeline stage",
			},
			[]string{"stage"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		peakHour: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "peak_feedin_hour",
			Help: "Hour of day with the highest summed grid feed-in",
		}),
		peakFeedin: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "peak_feedin",
			Help: "Summed grid feed-in of the peak hour",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}
	r.registry.MustRegister(r.rows, r.stageDuration, r.peakHour, r.peakFeedin, r.lastSuccess)
	return r
}

// AddRows counts n rows against a stage.
func (r *Run) AddRows(stage string, n int) {
	r.rows.WithLabelValues(stage).Add(float64(n))
}

// ObserveStage records how long a stage took.
func (r *Run) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetPeak records the peak feed-in hour and its value.
func (r *Run) SetPeak(hour int, feedin float64) {
	r.peakHour.Set(float64(hour))
	r.peakFeedin.Set(feedin)
}

// MarkSuccess stamps the run as successful at t.
func (r *Run) MarkSuccess(t time.Time) {
	r.lastSuccess.Set(float64(t.Unix()))
}

// Registry exposes the underlying registry.
func (r *Run) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the metrics in text exposition format to path.
func (r *Run) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
