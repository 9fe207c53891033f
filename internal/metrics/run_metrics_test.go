package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"defecteval/domain/evaluation"
	"defecteval/internal/errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMetrics_Counters(t *testing.T) {
	m := NewRunMetrics("bookkeeper")
	cell := evaluation.Cell{Release: 2, Selection: evaluation.SelectionBestFirst, Balancing: evaluation.BalancingSMOTE, Classifier: evaluation.ClassifierKNN}

	m.ObserveCell(cell, 10*time.Millisecond, nil)
	m.ObserveCell(cell, 10*time.Millisecond, nil)
	m.ObserveCell(cell, time.Millisecond, errors.ModelFitError("single class", nil))
	m.RecordsWritten(2)
	m.ReleaseSkipped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cellsEvaluated.WithLabelValues("best_first", "smote", "knn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cellsFailed.WithLabelValues("knn", errors.CodeModelFit)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.recordsWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.releasesSkipped))
}

func TestRunMetrics_Textfile(t *testing.T) {
	m := NewRunMetrics("zookeeper")
	m.RecordsWritten(24)
	m.RunFinished(1500 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "defecteval.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `defecteval_records_written_total{project="zookeeper"} 24`)
	assert.Contains(t, string(data), `defecteval_run_duration_seconds{project="zookeeper"} 1.5`)
}

func TestRunMetrics_NilIsSafe(t *testing.T) {
	var m *RunMetrics
	m.ObserveCell(evaluation.Cell{}, time.Second, nil)
	m.RecordsWritten(1)
	assert.NoError(t, m.WriteTextfile("/nonexistent/dir/file.prom"))
}
