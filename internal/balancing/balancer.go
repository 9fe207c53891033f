package balancing

import (
	"context"
	"fmt"
	"math/rand"

	"defecteval/domain/dataset"
	"defecteval/domain/evaluation"
	"defecteval/internal"
	"defecteval/internal/errors"
	"defecteval/ports"
)

// Target carries the per-release inputs of a balancing step
type Target struct {
	// Percent is the minority percentage the oversampler aims for
	Percent float64
	Seed    int64
}

// Balancer applies a balancing policy to a training slice. It never sees the
// testing slice.
type Balancer struct {
	oversampler  ports.TargetedResampler
	undersampler ports.Resampler
	smote        ports.Resampler
	logger       *internal.Logger
}

// NewBalancer creates a balancer from its three resamplers
func NewBalancer(oversampler ports.TargetedResampler, undersampler, smote ports.Resampler, logger *internal.Logger) *Balancer {
	return &Balancer{
		oversampler:  oversampler,
		undersampler: undersampler,
		smote:        smote,
		logger:       logger,
	}
}

// Apply returns the balanced training set. BalancingNone returns the input
// itself; every other policy returns a new dataset.
func (b *Balancer) Apply(ctx context.Context, policy evaluation.BalancingPolicy, training *dataset.Dataset, target Target) (*dataset.Dataset, error) {
	rng := rand.New(rand.NewSource(target.Seed))

	var (
		out *dataset.Dataset
		err error
	)
	switch policy {
	case evaluation.BalancingNone:
		return training, nil
	case evaluation.BalancingOversample:
		out, err = b.oversampler.ResampleTo(ctx, training, target.Percent, rng)
	case evaluation.BalancingUndersample:
		out, err = b.undersampler.Resample(ctx, training, rng)
	case evaluation.BalancingSMOTE:
		out, err = b.smote.Resample(ctx, training, rng)
	default:
		return nil, errors.InternalError(fmt.Sprintf("unknown balancing policy %d", int(policy)))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s", policy)
	}

	b.logger.Debug("%s: %d -> %d instances, %d -> %d defective",
		policy, training.Len(), out.Len(), training.DefectCount(), out.DefectCount())
	return out, nil
}
