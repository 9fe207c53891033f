package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"defecteval/adapters/report"
	"defecteval/app"
	"defecteval/domain/core"
	"defecteval/domain/evaluation"
	"defecteval/domain/run"
	"defecteval/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRun(t *testing.T, dir string) ports.RunReport {
	t.Helper()
	book := evaluation.ReleaseBookkeeping{Release: 2, TrainingRelease: 1, TrainingFraction: 0.5, TrainDefectRate: 0.2, TestDefectRate: 0.3}
	var records []evaluation.Record
	for _, cell := range evaluation.FullMatrix().Cells(2) {
		records = append(records, evaluation.NewRecord("bookkeeper", cell, book,
			evaluation.ConfusionMetrics{TruePositive: 2, TrueNegative: 6, FalsePositive: 1, FalseNegative: 1, Precision: 2.0 / 3.0, Recall: 2.0 / 3.0, ROCArea: 0.8, Kappa: 0.52}))
	}

	m := run.NewRunManifest(core.NewRunID(), "bookkeeper", 2, run.NewRunFingerprint("cfg", "data", 1, app.CodeVersion))
	m.RecordCount = len(records)
	m.ExpectedRecords = len(records)
	m.OutputHash = app.OutputHash(records)

	rep := ports.RunReport{Project: "bookkeeper", Records: records, Manifest: m}
	require.NoError(t, report.NewCSVSink(dir, nil).Write(context.Background(), rep))
	require.NoError(t, report.NewManifestSink(dir, nil).Write(context.Background(), rep))
	return rep
}

func TestLoadRun(t *testing.T) {
	dir := t.TempDir()
	want := writeRun(t, dir)

	files, err := findManifests(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	got, err := loadRun(files[0])
	require.NoError(t, err)
	assert.Equal(t, want.Records, got.Records)
	assert.Equal(t, want.Manifest.RunID, got.Manifest.RunID)
	assert.Equal(t, want.Manifest.OutputHash, got.Manifest.OutputHash)
	assert.Equal(t, got.Manifest.OutputHash, app.OutputHash(got.Records))
}

func TestLoadRun_MissingResults(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, "bookkeeper.csv")))

	_, err := loadRun(filepath.Join(dir, "bookkeeper.manifest.json"))
	assert.Error(t, err)
}
