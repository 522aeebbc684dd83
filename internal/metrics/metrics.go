// Package metrics exposes the outcome of a cleaning run as Prometheus metrics.
//
// The step runs once and exits, so metrics are not scraped: they are written
// to a node_exporter textfile when a metrics file is configured.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "cleaning"

// Recorder holds the run metrics in a dedicated registry.
type Recorder struct {
	registry *prometheus.Registry

	rowsInput     prometheus.Gauge
	rowsOutput    prometheus.Gauge
	rowsRemoved   *prometheus.GaugeVec
	stepDuration  *prometheus.GaugeVec
	runDuration   prometheus.Gauge
	runSuccess    prometheus.Gauge
	lastRunTime   prometheus.Gauge
	errorsTotal   *prometheus.CounterVec
	publishedSize prometheus.Gauge
}

// New creates a recorder. An empty namespace uses DefaultNamespace.
func New(namespace string) *Recorder {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rowsInput: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_input",
			Help:      "Rows read from the input artifact",
		}),
		rowsOutput: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_output",
			Help:      "Rows written to the output artifact",
		}),
		rowsRemoved: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_removed",
			Help:      "Rows removed by each cleaning step",
		}, []string{"step"}),
		stepDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of each cleaning step",
		}, []string{"step"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run",
		}),
		runSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_success",
			Help:      "1 if the last run succeeded, 0 otherwise",
		}),
		lastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Completion time of the last run",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failed runs by error category",
		}, []string{"category"}),
		publishedSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "output_artifact_bytes",
			Help:      "Size of the published artifact",
		}),
	}
	r.registry.MustRegister(
		r.rowsInput,
		r.rowsOutput,
		r.rowsRemoved,
		r.stepDuration,
		r.runDuration,
		r.runSuccess,
		r.lastRunTime,
		r.errorsTotal,
		r.publishedSize,
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records the outcome of one run. A nil result is ignored.
func (r *Recorder) Observe(res *cleaning.ExecutionResult) {
	if res == nil {
		return
	}
	r.rowsInput.Set(float64(res.RowsInput))
	r.rowsOutput.Set(float64(res.RowsOutput))
	for _, step := range res.Steps {
		r.rowsRemoved.WithLabelValues(step.Name).Set(float64(step.Removed))
		r.stepDuration.WithLabelValues(step.Name).Set(step.Duration.Seconds())
	}
	if !res.CompletedAt.IsZero() {
		r.runDuration.Set(res.CompletedAt.Sub(res.StartedAt).Seconds())
		r.lastRunTime.Set(float64(res.CompletedAt.Unix()))
	}
	if res.Output != nil {
		r.publishedSize.Set(float64(res.Output.Size))
	}

	if res.Error != nil {
		r.runSuccess.Set(0)
		category := res.Error.Category
		if category == "" {
			category = "unknown"
		}
		r.errorsTotal.WithLabelValues(category).Inc()
		return
	}
	r.runSuccess.Set(1)
}

// WriteTextfile writes the metrics in the text exposition format to path,
// replacing the file atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
