package metrics

import (
	"time"

	"defecteval/domain/evaluation"
	"defecteval/internal/errors"

	"github.com/prometheus/client_golang/prometheus"
)

// RunMetrics collects the counters of one evaluation run in a private
// registry. A nil *RunMetrics records nothing.
type RunMetrics struct {
	registry *prometheus.Registry

	cellsEvaluated  *prometheus.CounterVec
	cellsFailed     *prometheus.CounterVec
	fitDuration     *prometheus.HistogramVec
	trainingSize    *prometheus.HistogramVec
	recordsWritten  prometheus.Counter
	releasesSkipped prometheus.Counter
	runDuration     prometheus.Gauge
}

// NewRunMetrics registers the run metrics labelled with the project name
func NewRunMetrics(project string) *RunMetrics {
	labels := prometheus.Labels{"project": project}
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		cellsEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "defecteval_cells_evaluated_total",
			Help:        "Matrix cells that produced a record.",
			ConstLabels: labels,
		}, []string{"selection", "balancing", "classifier"}),
		cellsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "defecteval_cells_failed_total",
			Help:        "Matrix cells that failed, by error code.",
			ConstLabels: labels,
		}, []string{"classifier", "code"}),
		fitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "defecteval_cell_duration_seconds",
			Help:        "Fit plus evaluation time of one matrix cell.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"classifier"}),
		trainingSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "defecteval_training_instances",
			Help:        "Training set size after balancing.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(16, 2, 12),
		}, []string{"balancing"}),
		recordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "defecteval_records_written_total",
			Help:        "Records handed to the sinks.",
			ConstLabels: labels,
		}),
		releasesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "defecteval_releases_skipped_total",
			Help:        "Releases skipped because of a data error.",
			ConstLabels: labels,
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "defecteval_run_duration_seconds",
			Help:        "Wall time of the last run.",
			ConstLabels: labels,
		}),
	}
	m.registry.MustRegister(
		m.cellsEvaluated, m.cellsFailed, m.fitDuration, m.trainingSize,
		m.recordsWritten, m.releasesSkipped, m.runDuration,
	)
	return m
}

// ObserveCell records the outcome of one cell
func (m *RunMetrics) ObserveCell(cell evaluation.Cell, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.fitDuration.WithLabelValues(cell.Classifier.ID()).Observe(d.Seconds())
	if err != nil {
		m.cellsFailed.WithLabelValues(cell.Classifier.ID(), errors.GetCode(err)).Inc()
		return
	}
	m.cellsEvaluated.WithLabelValues(cell.Selection.ID(), cell.Balancing.ID(), cell.Classifier.ID()).Inc()
}

// ObserveTrainingSize records a balanced training set size
func (m *RunMetrics) ObserveTrainingSize(policy evaluation.BalancingPolicy, n int) {
	if m == nil {
		return
	}
	m.trainingSize.WithLabelValues(policy.ID()).Observe(float64(n))
}

// RecordsWritten adds to the written record count
func (m *RunMetrics) RecordsWritten(n int) {
	if m == nil {
		return
	}
	m.recordsWritten.Add(float64(n))
}

// ReleaseSkipped counts a skipped release
func (m *RunMetrics) ReleaseSkipped() {
	if m == nil {
		return
	}
	m.releasesSkipped.Inc()
}

// RunFinished stores the run wall time
func (m *RunMetrics) RunFinished(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Set(d.Seconds())
}

// Registry exposes the gatherer, mainly for tests
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the node-exporter textfile format.
// The file is replaced atomically.
func (m *RunMetrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.IOFailure(path, err)
	}
	return nil
}
