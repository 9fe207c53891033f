package learn

import (
	"context"
	"math/rand"
	"sort"

	"defecteval/domain/dataset"

	"gonum.org/v1/gonum/floats"
)

// SMOTE defaults
const (
	DefaultSMOTENeighbours = 5
	DefaultSMOTEPercentage = 100
)

// SMOTE synthesises minority instances by interpolating between a minority
// instance and one of its nearest minority neighbours
type SMOTE struct {
	Neighbours int
	Percentage int
}

// NewSMOTE creates an oversampler producing percentage/100 synthetic
// instances per minority instance
func NewSMOTE(neighbours, percentage int) *SMOTE {
	if neighbours < 1 {
		neighbours = DefaultSMOTENeighbours
	}
	if percentage < 0 {
		percentage = DefaultSMOTEPercentage
	}
	return &SMOTE{Neighbours: neighbours, Percentage: percentage}
}

// Resample appends the synthetic instances after the original ones.
// The neighbour count shrinks to the minority size minus one; a lone
// minority instance is duplicated instead.
func (s *SMOTE) Resample(ctx context.Context, training *dataset.Dataset, rng *rand.Rand) (*dataset.Dataset, error) {
	minority := training.MinorityLabel()
	pool := indicesOf(training, minority)
	perInstance := s.Percentage / 100
	remainder := s.Percentage % 100

	if len(pool) == 0 || s.Percentage == 0 {
		return training.WithInstances(copyInstances(training.Instances, 0)), nil
	}

	total := len(pool)*perInstance + len(pool)*remainder/100
	out := copyInstances(training.Instances, total)

	if len(pool) == 1 {
		for i := 0; i < total; i++ {
			out = append(out, training.Instances[pool[0]])
		}
		return training.WithInstances(out), nil
	}

	k := s.Neighbours
	if k > len(pool)-1 {
		k = len(pool) - 1
	}
	neighbours := make([][]int, len(pool))
	for a := range pool {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		neighbours[a] = nearestMinority(training, pool, a, k)
	}

	// every instance gets perInstance synthetics; the remainder goes to a
	// random subset of the minority instances
	counts := make([]int, len(pool))
	for a := range counts {
		counts[a] = perInstance
	}
	if extra := len(pool) * remainder / 100; extra > 0 {
		for _, a := range rng.Perm(len(pool))[:extra] {
			counts[a]++
		}
	}

	for a, src := range pool {
		base := training.Instances[src]
		for c := 0; c < counts[a]; c++ {
			nn := training.Instances[pool[neighbours[a][rng.Intn(k)]]]
			gap := rng.Float64()
			features := make([]float64, len(base.Features))
			copy(features, base.Features)
			diff := make([]float64, len(base.Features))
			floats.SubTo(diff, nn.Features, base.Features)
			floats.AddScaled(features, gap, diff)
			out = append(out, dataset.Instance{Release: base.Release, Features: features, Label: minority})
		}
	}
	return training.WithInstances(out), nil
}

// nearestMinority returns the positions in pool of the k nearest minority
// neighbours of pool[a], excluding itself; ties keep pool order
func nearestMinority(training *dataset.Dataset, pool []int, a, k int) []int {
	x := training.Instances[pool[a]].Features
	type cand struct {
		pos  int
		dist float64
	}
	cands := make([]cand, 0, len(pool)-1)
	for b, idx := range pool {
		if b == a {
			continue
		}
		cands = append(cands, cand{pos: b, dist: floats.Distance(x, training.Instances[idx].Features, 2)})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })

	out := make([]int, k)
	for i := range out {
		out[i] = cands[i].pos
	}
	return out
}
