package migration

import (
	"context"

	"defecteval/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the tables that hold persisted runs
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order. Every step is
// idempotent so the runner can be applied before each run.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, step := range r.Steps() {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return errors.DatabaseError("failed to "+step.Name, err)
		}
	}
	return nil
}

// Step is one named DDL statement
type Step struct {
	Name string
	SQL  string
}

// Steps lists the migrations in execution order
func (r *MigrationRunner) Steps() []Step {
	return []Step{
		{Name: "create evaluation_runs table", SQL: createRunsTable},
		{Name: "create evaluation_records table", SQL: createRecordsTable},
		{Name: "create indexes", SQL: createIndexes},
	}
}

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS evaluation_runs (
		id TEXT PRIMARY KEY,
		project VARCHAR(255) NOT NULL,
		max_release INTEGER NOT NULL,
		config_hash CHAR(64) NOT NULL,
		dataset_hash CHAR(64) NOT NULL,
		seed BIGINT NOT NULL,
		code_version VARCHAR(64) NOT NULL,
		fingerprint CHAR(64) NOT NULL,
		output_hash CHAR(64),
		record_count INTEGER NOT NULL DEFAULT 0,
		expected_records INTEGER NOT NULL DEFAULT 0,
		failed_cells INTEGER NOT NULL DEFAULT 0,
		skipped_releases INTEGER[] NOT NULL DEFAULT '{}',
		runtime_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)
`

const createRecordsTable = `
	CREATE TABLE IF NOT EXISTS evaluation_records (
		run_id TEXT NOT NULL REFERENCES evaluation_runs(id) ON DELETE CASCADE,
		"position" INTEGER NOT NULL,
		dataset VARCHAR(255) NOT NULL,
		training_release INTEGER NOT NULL,
		training_fraction DOUBLE PRECISION NOT NULL,
		train_defect_rate DOUBLE PRECISION NOT NULL,
		test_defect_rate DOUBLE PRECISION NOT NULL,
		classifier VARCHAR(32) NOT NULL,
		balancing VARCHAR(32) NOT NULL,
		feature_selection VARCHAR(32) NOT NULL,
		tp INTEGER NOT NULL,
		fp INTEGER NOT NULL,
		tn INTEGER NOT NULL,
		fn INTEGER NOT NULL,
		"precision" DOUBLE PRECISION NOT NULL,
		recall DOUBLE PRECISION NOT NULL,
		roc_area DOUBLE PRECISION NOT NULL,
		kappa DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, "position")
	)
`

const createIndexes = `
	CREATE INDEX IF NOT EXISTS idx_evaluation_runs_project ON evaluation_runs(project, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_evaluation_runs_fingerprint ON evaluation_runs(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_evaluation_records_treatment
		ON evaluation_records(feature_selection, balancing, classifier);
`
