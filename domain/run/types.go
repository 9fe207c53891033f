package run

import (
	"crypto/sha256"
	"fmt"

	"defecteval/domain/core"
)

// RunFingerprint identifies the inputs that make a run reproducible
type RunFingerprint struct {
	ConfigHash  core.ConfigHash  `json:"config_hash"`
	DatasetHash core.DatasetHash `json:"dataset_hash"`
	Seed        int64            `json:"seed"`
	CodeVersion string           `json:"code_version"`
	Fingerprint core.Hash        `json:"fingerprint"` // Hash of all above
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(configHash core.ConfigHash, datasetHash core.DatasetHash, seed int64, codeVersion string) RunFingerprint {
	return RunFingerprint{
		ConfigHash:  configHash,
		DatasetHash: datasetHash,
		Seed:        seed,
		CodeVersion: codeVersion,
		Fingerprint: computeRunFingerprint(configHash, datasetHash, seed, codeVersion),
	}
}

// computeRunFingerprint generates deterministic hash from all determinism parameters
func computeRunFingerprint(configHash core.ConfigHash, datasetHash core.DatasetHash, seed int64, codeVersion string) core.Hash {
	data := fmt.Sprintf("config:%s|dataset:%s|seed:%d|code:%s", configHash, datasetHash, seed, codeVersion)
	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}
