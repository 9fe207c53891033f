package run

import (
	"defecteval/domain/core"
)

// RunManifest records what a walk-forward run consumed and produced.
// Two runs with equal fingerprints must produce equal output hashes.
type RunManifest struct {
	RunID           core.RunID      `json:"run_id"`
	Project         string          `json:"project"`
	MaxRelease      int             `json:"max_release"`
	Fingerprint     RunFingerprint  `json:"fingerprint"`
	OutputHash      core.OutputHash `json:"output_hash"`
	RecordCount     int             `json:"record_count"`
	ExpectedRecords int             `json:"expected_records"`
	FailedCells     int             `json:"failed_cells"`
	SkippedReleases []int           `json:"skipped_releases"`
	RuntimeMs       int64           `json:"runtime_ms"`
	CreatedAt       core.Timestamp  `json:"created_at"`
}

// NewRunManifest creates a manifest before the run produces output
func NewRunManifest(runID core.RunID, project string, maxRelease int, fingerprint RunFingerprint) *RunManifest {
	return &RunManifest{
		RunID:           runID,
		Project:         project,
		MaxRelease:      maxRelease,
		Fingerprint:     fingerprint,
		SkippedReleases: []int{},
		CreatedAt:       core.Now(),
	}
}

// Complete reports whether every expected cell produced a record
func (m *RunManifest) Complete() bool {
	return m.FailedCells == 0 && len(m.SkippedReleases) == 0 && m.RecordCount == m.ExpectedRecords
}

// Validate checks if the manifest is complete
func (m *RunManifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewValidationError("run_manifest", "run_id cannot be empty")
	}
	if m.Project == "" {
		return core.NewValidationError("run_manifest", "project cannot be empty")
	}
	if m.Fingerprint.Fingerprint.IsEmpty() {
		return core.NewValidationError("run_manifest", "fingerprint cannot be empty")
	}
	if m.RecordCount > m.ExpectedRecords {
		return core.NewValidationError("run_manifest", "more records than matrix cells")
	}
	return nil
}
