package postgres

import (
	"context"
	"fmt"

	"defecteval/domain/core"
	"defecteval/domain/evaluation"
	"defecteval/domain/run"
	"defecteval/internal"
	"defecteval/internal/errors"
	"defecteval/internal/migration"
	"defecteval/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// insertBatch bounds the number of rows per INSERT; Postgres caps bind parameters at 65535
const insertBatch = 1000

// RecordRepository persists runs and their records
type RecordRepository struct {
	db     *sqlx.DB
	logger *internal.Logger
}

// NewRecordRepository creates a new PostgreSQL record repository
func NewRecordRepository(db *sqlx.DB, logger *internal.Logger) *RecordRepository {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &RecordRepository{db: db, logger: logger}
}

// Connect opens the database and applies migrations
func Connect(ctx context.Context, databaseURL string, logger *internal.Logger) (*RecordRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("[RecordRepository] schema version %s ready", runner.Version())
	return NewRecordRepository(db, logger), nil
}

// Close releases the connection pool
func (r *RecordRepository) Close() error {
	return r.db.Close()
}

func (r *RecordRepository) Name() string { return "postgres" }

// runRow mirrors evaluation_runs
type runRow struct {
	ID              string        `db:"id"`
	Project         string        `db:"project"`
	MaxRelease      int           `db:"max_release"`
	ConfigHash      string        `db:"config_hash"`
	DatasetHash     string        `db:"dataset_hash"`
	Seed            int64         `db:"seed"`
	CodeVersion     string        `db:"code_version"`
	Fingerprint     string        `db:"fingerprint"`
	OutputHash      string        `db:"output_hash"`
	RecordCount     int           `db:"record_count"`
	ExpectedRecords int           `db:"expected_records"`
	FailedCells     int           `db:"failed_cells"`
	SkippedReleases pq.Int64Array `db:"skipped_releases"`
	RuntimeMs       int64         `db:"runtime_ms"`
}

// recordRow mirrors evaluation_records
type recordRow struct {
	RunID            string  `db:"run_id"`
	Position         int     `db:"position"`
	Dataset          string  `db:"dataset"`
	TrainingRelease  int     `db:"training_release"`
	TrainingFraction float64 `db:"training_fraction"`
	TrainDefectRate  float64 `db:"train_defect_rate"`
	TestDefectRate   float64 `db:"test_defect_rate"`
	Classifier       string  `db:"classifier"`
	Balancing        string  `db:"balancing"`
	FeatureSelection string  `db:"feature_selection"`

	evaluation.ConfusionMetrics
}

func newRunRow(m *run.RunManifest) runRow {
	skipped := make(pq.Int64Array, len(m.SkippedReleases))
	for i, r := range m.SkippedReleases {
		skipped[i] = int64(r)
	}
	return runRow{
		ID:              m.RunID.String(),
		Project:         m.Project,
		MaxRelease:      m.MaxRelease,
		ConfigHash:      m.Fingerprint.ConfigHash.String(),
		DatasetHash:     m.Fingerprint.DatasetHash.String(),
		Seed:            m.Fingerprint.Seed,
		CodeVersion:     m.Fingerprint.CodeVersion,
		Fingerprint:     m.Fingerprint.Fingerprint.String(),
		OutputHash:      m.OutputHash.String(),
		RecordCount:     m.RecordCount,
		ExpectedRecords: m.ExpectedRecords,
		FailedCells:     m.FailedCells,
		SkippedReleases: skipped,
		RuntimeMs:       m.RuntimeMs,
	}
}

// newRecordRows stores policy identifiers, not report labels
func newRecordRows(runID core.RunID, records []evaluation.Record) []recordRow {
	rows := make([]recordRow, len(records))
	for i, rec := range records {
		rows[i] = recordRow{
			RunID:            runID.String(),
			Position:         i,
			Dataset:          rec.Dataset,
			TrainingRelease:  rec.TrainingRelease,
			TrainingFraction: rec.TrainingFraction,
			TrainDefectRate:  rec.TrainDefectRate,
			TestDefectRate:   rec.TestDefectRate,
			Classifier:       rec.Classifier.ID(),
			Balancing:        rec.Balancing.ID(),
			FeatureSelection: rec.FeatureSelection.ID(),
			ConfusionMetrics: rec.Metrics,
		}
	}
	return rows
}

func (row recordRow) record() (evaluation.Record, error) {
	cls, err := evaluation.ParseClassifierKind(row.Classifier)
	if err != nil {
		return evaluation.Record{}, err
	}
	bal, err := evaluation.ParseBalancingPolicy(row.Balancing)
	if err != nil {
		return evaluation.Record{}, err
	}
	sel, err := evaluation.ParseFeatureSelectionPolicy(row.FeatureSelection)
	if err != nil {
		return evaluation.Record{}, err
	}
	return evaluation.Record{
		Dataset:          row.Dataset,
		TrainingRelease:  row.TrainingRelease,
		TrainingFraction: row.TrainingFraction,
		TrainDefectRate:  row.TrainDefectRate,
		TestDefectRate:   row.TestDefectRate,
		Classifier:       cls,
		Balancing:        bal,
		FeatureSelection: sel,
		Metrics:          row.ConfusionMetrics,
	}, nil
}

// Write stores the manifest and every record of a run in one transaction
func (r *RecordRepository) Write(ctx context.Context, report ports.RunReport) error {
	if report.Manifest == nil {
		return errors.InternalError("postgres sink needs a run manifest")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO evaluation_runs (id, project, max_release, config_hash, dataset_hash, seed, code_version,
			fingerprint, output_hash, record_count, expected_records, failed_cells, skipped_releases, runtime_ms)
		VALUES (:id, :project, :max_release, :config_hash, :dataset_hash, :seed, :code_version,
			:fingerprint, :output_hash, :record_count, :expected_records, :failed_cells, :skipped_releases, :runtime_ms)
	`, newRunRow(report.Manifest))
	if err != nil {
		return errors.DatabaseError("failed to insert run", err)
	}

	rows := newRecordRows(report.Manifest.RunID, report.Records)
	for start := 0; start < len(rows); start += insertBatch {
		end := start + insertBatch
		if end > len(rows) {
			end = len(rows)
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO evaluation_records (run_id, "position", dataset, training_release, training_fraction,
				train_defect_rate, test_defect_rate, classifier, balancing, feature_selection,
				tp, fp, tn, fn, "precision", recall, roc_area, kappa)
			VALUES (:run_id, :position, :dataset, :training_release, :training_fraction,
				:train_defect_rate, :test_defect_rate, :classifier, :balancing, :feature_selection,
				:tp, :fp, :tn, :fn, :precision, :recall, :roc_area, :kappa)
		`, rows[start:end])
		if err != nil {
			return errors.DatabaseError(fmt.Sprintf("failed to insert records %d-%d", start, end), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit run", err)
	}
	r.logger.Info("[RecordRepository] stored run %s with %d records", report.Manifest.RunID, len(rows))
	return nil
}

// ListRecords returns the records of a run in output order
func (r *RecordRepository) ListRecords(ctx context.Context, runID core.RunID) ([]evaluation.Record, error) {
	var rows []recordRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT run_id, "position", dataset, training_release, training_fraction, train_defect_rate,
			test_defect_rate, classifier, balancing, feature_selection,
			tp, fp, tn, fn, "precision", recall, roc_area, kappa
		FROM evaluation_records
		WHERE run_id = $1
		ORDER BY "position"
	`, runID.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to list records", err)
	}

	records := make([]evaluation.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, errors.DatabaseError(fmt.Sprintf("record %d of run %s", row.Position, runID), err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// RunExists reports whether a run is already stored
func (r *RecordRepository) RunExists(ctx context.Context, runID core.RunID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM evaluation_runs WHERE id = $1)`, runID.String())
	if err != nil {
		return false, errors.DatabaseError("failed to look up run", err)
	}
	return exists, nil
}

// FindRunsByFingerprint returns the IDs of earlier runs with the same inputs
func (r *RecordRepository) FindRunsByFingerprint(ctx context.Context, fingerprint core.Hash) ([]core.RunID, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		SELECT id FROM evaluation_runs WHERE fingerprint = $1 ORDER BY created_at
	`, fingerprint.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to look up fingerprint", err)
	}
	out := make([]core.RunID, len(ids))
	for i, id := range ids {
		out[i] = core.RunID(id)
	}
	return out, nil
}

var _ ports.RecordSink = (*RecordRepository)(nil)
