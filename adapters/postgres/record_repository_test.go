package postgres

import (
	"context"
	"os"
	"testing"

	"defecteval/domain/core"
	"defecteval/domain/evaluation"
	"defecteval/domain/run"
	"defecteval/internal"
	"defecteval/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []evaluation.Record {
	book := evaluation.ReleaseBookkeeping{Release: 2, TrainingRelease: 1, TrainingFraction: 0.5, TrainDefectRate: 0.2, TestDefectRate: 0.3}
	var records []evaluation.Record
	for i, cell := range evaluation.FullMatrix().Cells(2) {
		records = append(records, evaluation.NewRecord("bookkeeper", cell, book,
			evaluation.ConfusionMetrics{TruePositive: i, TrueNegative: 10 - i%10, Precision: 0.5, Recall: 0.25, ROCArea: 0.75, Kappa: 0.1}))
	}
	return records
}

func sampleManifest() *run.RunManifest {
	m := run.NewRunManifest(core.NewRunID(), "bookkeeper", 2,
		run.NewRunFingerprint(core.ConfigHash(core.NewHash([]byte("cfg"))), core.DatasetHash(core.NewHash([]byte("data"))), 1, "test"))
	m.SkippedReleases = []int{3}
	return m
}

func TestRecordRows_RoundTrip(t *testing.T) {
	records := sampleRecords()
	rows := newRecordRows("run-1", records)
	require.Len(t, rows, len(records))

	for i, row := range rows {
		assert.Equal(t, i, row.Position)
		assert.Equal(t, "run-1", row.RunID)
		back, err := row.record()
		require.NoError(t, err)
		assert.Equal(t, records[i], back)
	}
	assert.Equal(t, "knn", rows[2].Classifier)
	assert.Equal(t, "best_first", rows[23].FeatureSelection)
}

func TestRecordRow_UnknownIdentifier(t *testing.T) {
	row := newRecordRows("run-1", sampleRecords()[:1])[0]
	row.Balancing = "rose"
	_, err := row.record()
	assert.Error(t, err)
}

func TestNewRunRow(t *testing.T) {
	m := sampleManifest()
	row := newRunRow(m)
	assert.Equal(t, m.RunID.String(), row.ID)
	assert.Equal(t, m.Fingerprint.Fingerprint.String(), row.Fingerprint)
	assert.Len(t, row.ConfigHash, 64)
	assert.Equal(t, []int64{3}, []int64(row.SkippedReleases))
}

func TestWrite_RequiresManifest(t *testing.T) {
	repo := NewRecordRepository(nil, nil)
	err := repo.Write(context.Background(), ports.RunReport{Project: "bookkeeper"})
	assert.Error(t, err)
}

// Runs against a live database when DEFECTEVAL_TEST_DATABASE_URL is set
func TestRecordRepository_Integration(t *testing.T) {
	url := os.Getenv("DEFECTEVAL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DEFECTEVAL_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	repo, err := Connect(ctx, url, internal.NewNopLogger())
	require.NoError(t, err)
	defer repo.Close()

	m := sampleManifest()
	records := sampleRecords()
	m.RecordCount = len(records)
	m.ExpectedRecords = len(records)
	require.NoError(t, repo.Write(ctx, ports.RunReport{Project: "bookkeeper", Records: records, Manifest: m}))

	got, err := repo.ListRecords(ctx, m.RunID)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	exists, err := repo.RunExists(ctx, m.RunID)
	require.NoError(t, err)
	assert.True(t, exists)

	ids, err := repo.FindRunsByFingerprint(ctx, m.Fingerprint.Fingerprint)
	require.NoError(t, err)
	assert.Contains(t, ids, m.RunID)
}
