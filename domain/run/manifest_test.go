package run

import (
	"testing"

	"defecteval/domain/core"
)

func TestRunFingerprint_Deterministic(t *testing.T) {
	configHash := core.ConfigHash("test-config")
	datasetHash := core.DatasetHash("test-dataset")

	fp1 := NewRunFingerprint(configHash, datasetHash, 1, "1.0.0")
	fp2 := NewRunFingerprint(configHash, datasetHash, 1, "1.0.0")

	if fp1.Fingerprint != fp2.Fingerprint {
		t.Errorf("Fingerprints not identical: %s vs %s", fp1.Fingerprint, fp2.Fingerprint)
	}
	if fp1.ConfigHash != configHash {
		t.Errorf("ConfigHash mismatch: %s vs %s", fp1.ConfigHash, configHash)
	}
	if fp1.Seed != 1 {
		t.Errorf("Seed mismatch: %d", fp1.Seed)
	}
}

func TestRunFingerprint_Unique(t *testing.T) {
	base := NewRunFingerprint("test-config", "test-dataset", 1, "1.0.0")

	testCases := []struct {
		name string
		fp   RunFingerprint
	}{
		{"different config", NewRunFingerprint("other-config", "test-dataset", 1, "1.0.0")},
		{"different dataset", NewRunFingerprint("test-config", "other-dataset", 1, "1.0.0")},
		{"different seed", NewRunFingerprint("test-config", "test-dataset", 2, "1.0.0")},
		{"different code", NewRunFingerprint("test-config", "test-dataset", 1, "1.1.0")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.fp.Fingerprint == base.Fingerprint {
				t.Errorf("Fingerprint should be different for %s", tc.name)
			}
		})
	}
}

func TestRunManifest_Validate(t *testing.T) {
	fp := NewRunFingerprint("test-config", "test-dataset", 1, "1.0.0")
	manifest := NewRunManifest(core.RunID("run-1"), "bookkeeper", 3, fp)
	manifest.ExpectedRecords = 48
	manifest.RecordCount = 48

	if err := manifest.Validate(); err != nil {
		t.Errorf("Manifest validation failed: %v", err)
	}
	if !manifest.Complete() {
		t.Error("expected a complete manifest")
	}

	manifest.FailedCells = 3
	manifest.RecordCount = 45
	if manifest.Complete() {
		t.Error("failed cells make a manifest incomplete")
	}

	manifest.RecordCount = 49
	if err := manifest.Validate(); err == nil {
		t.Error("expected error for more records than cells")
	}

	empty := NewRunManifest("", "bookkeeper", 3, fp)
	if err := empty.Validate(); err == nil {
		t.Error("expected error for empty run id")
	}
}
