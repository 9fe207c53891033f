package excel

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"defecteval/domain/evaluation"
	"defecteval/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReportWriter_Sheets(t *testing.T) {
	book := evaluation.ReleaseBookkeeping{Release: 3, TrainingRelease: 2, TrainingFraction: 0.5, TrainDefectRate: 0.25, TestDefectRate: 0.1}
	var records []evaluation.Record
	for _, cell := range evaluation.FullMatrix().Cells(3) {
		records = append(records, evaluation.NewRecord("bookkeeper", cell, book,
			evaluation.ConfusionMetrics{TruePositive: 1, TrueNegative: 9, Precision: 1, Recall: 1, ROCArea: math.NaN(), Kappa: 1}))
	}

	dir := t.TempDir()
	w := NewReportWriter(dir, nil)
	assert.Equal(t, "xlsx", w.Name())
	require.NoError(t, w.Write(context.Background(), ports.RunReport{Project: "bookkeeper", Records: records}))

	f, err := excelize.OpenFile(filepath.Join(dir, "bookkeeper.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Results", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 25)
	assert.Equal(t, evaluation.RecordHeader, rows[0])
	assert.Equal(t, []string{"bookkeeper", "2", "0.5", "0.25", "0.1", "RandomForest", "No sampling", "No selection",
		"1", "0", "9", "0", "1", "1", "NaN", "1"}, rows[1])
	assert.Equal(t, "IBk", rows[24][5])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Len(t, summary, 25)
	assert.Equal(t, "Releases", summary[0][3])
}
