package executor

import (
	"defecteval/domain/evaluation"
	"defecteval/ports"
)

// SeedStreams derives per-cell seeds from the run seed by hashing the cell
// identity, so a cell gets the same seed whichever worker runs it
type SeedStreams struct {
	base int64
}

// NewSeedStreams creates seed streams for a run seed
func NewSeedStreams(base int64) *SeedStreams {
	return &SeedStreams{base: base}
}

// BalancingSeed seeds the resampling of one preparation
func (s *SeedStreams) BalancingSeed(release int, selection evaluation.FeatureSelectionPolicy, balancing evaluation.BalancingPolicy) int64 {
	return s.mix("balancing", release, int(selection), int(balancing))
}

// ClassifierSeed seeds the classifier of one cell
func (s *SeedStreams) ClassifierSeed(cell evaluation.Cell) int64 {
	return s.mix("classifier", cell.Release, int(cell.Selection), int(cell.Balancing), int(cell.Classifier))
}

func (s *SeedStreams) mix(stream string, parts ...int) int64 {
	hash := hashString(stream)
	for _, p := range parts {
		hash = ((hash << 5) + hash) + uint64(p) + 1
	}
	return s.base ^ int64(hash)
}

// hashString is djb2 widened to 64 bits
func hashString(s string) uint64 {
	var hash uint64 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	return hash
}

var _ ports.RNGPort = (*SeedStreams)(nil)
