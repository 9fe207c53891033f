package learn

import (
	"context"
	"math/rand"
	"testing"

	"defecteval/domain/dataset"
	"defecteval/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imbalanced(t *testing.T, size, defective int) *dataset.Dataset {
	t.Helper()
	cfg := testkit.DefaultReleaseConfig()
	cfg.Releases = []testkit.ReleaseSpec{{Size: size, Defective: defective}}
	return testkit.NewReleaseDataGenerator(cfg).Generate()
}

func TestResampler_ReachesTargetShare(t *testing.T) {
	training := imbalanced(t, 100, 10)
	rng := rand.New(rand.NewSource(1))

	out, err := NewResampler().ResampleTo(context.Background(), training, 30, rng)
	require.NoError(t, err)

	// 90 clean; 39/129 >= 0.3 and 38/128 < 0.3
	assert.Equal(t, 90, out.ClassCount(dataset.LabelClean))
	assert.Equal(t, 39, out.DefectCount())
	assert.Equal(t, training.Instances, out.Instances[:training.Len()], "originals keep their order")
	assert.Equal(t, 100, training.Len(), "input untouched")
}

func TestResampler_CapsAtBalance(t *testing.T) {
	training := imbalanced(t, 100, 10)
	out, err := NewResampler().ResampleTo(context.Background(), training, 140, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 90, out.DefectCount())
	assert.Equal(t, 180, out.Len())
}

func TestResampler_NoOps(t *testing.T) {
	training := imbalanced(t, 20, 0)
	out, err := NewResampler().ResampleTo(context.Background(), training, 40, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, training.Len(), out.Len())

	balanced := imbalanced(t, 20, 8)
	out, err = NewResampler().ResampleTo(context.Background(), balanced, 30, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, balanced.Len(), out.Len(), "already above target")
}

func TestSpreadSubsampler_Balances(t *testing.T) {
	training := imbalanced(t, 100, 10)
	out, err := NewSpreadSubsampler(1).Resample(context.Background(), training, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, 10, out.DefectCount())
	assert.Equal(t, 10, out.ClassCount(dataset.LabelClean))
	assert.LessOrEqual(t, out.Len(), training.Len())

	// kept instances are a subsequence of the input
	j := 0
	for _, in := range training.Instances {
		if j < out.Len() && &in.Features[0] == &out.Instances[j].Features[0] {
			j++
		}
	}
	assert.Equal(t, out.Len(), j)
}

func TestSpreadSubsampler_SingleClassUnchanged(t *testing.T) {
	training := imbalanced(t, 15, 0)
	out, err := NewSpreadSubsampler(1).Resample(context.Background(), training, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 15, out.Len())
}

func TestSMOTE_DoublesMinority(t *testing.T) {
	training := imbalanced(t, 60, 12)
	out, err := NewSMOTE(5, 100).Resample(context.Background(), training, rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	assert.Equal(t, 72, out.Len())
	assert.Equal(t, 24, out.DefectCount())

	// synthetic instances lie inside the minority bounding box
	minority := training.Filter(func(in dataset.Instance) bool { return in.IsDefective() })
	for _, syn := range out.Instances[training.Len():] {
		for j, v := range syn.Features {
			col := minority.Column(j)
			lo, hi := col[0], col[0]
			for _, c := range col {
				lo, hi = min(lo, c), max(hi, c)
			}
			assert.GreaterOrEqual(t, v, lo)
			assert.LessOrEqual(t, v, hi)
		}
	}
}

func TestSMOTE_SmallMinorities(t *testing.T) {
	single := imbalanced(t, 10, 1)
	out, err := NewSMOTE(5, 100).Resample(context.Background(), single, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 2, out.DefectCount())
	assert.Equal(t, out.Instances[10].Features, single.Filter(func(in dataset.Instance) bool { return in.IsDefective() }).Instances[0].Features)

	pair := imbalanced(t, 10, 2)
	out, err = NewSMOTE(5, 100).Resample(context.Background(), pair, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 4, out.DefectCount(), "k shrinks to one neighbour")

	none := imbalanced(t, 10, 0)
	out, err = NewSMOTE(5, 100).Resample(context.Background(), none, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 10, out.Len())
}

func TestSMOTE_Deterministic(t *testing.T) {
	training := imbalanced(t, 60, 12)
	a, err := NewSMOTE(5, 100).Resample(context.Background(), training, rand.New(rand.NewSource(4)))
	require.NoError(t, err)
	b, err := NewSMOTE(5, 100).Resample(context.Background(), training, rand.New(rand.NewSource(4)))
	require.NoError(t, err)
	assert.Equal(t, a.Instances, b.Instances)
}

func TestCFSEvaluator_Merit(t *testing.T) {
	schema, err := dataset.NewSchema([]string{"signal numeric", "copy numeric", "constant numeric", "Buggy {Yes,No}"})
	require.NoError(t, err)
	var instances []dataset.Instance
	for i := 0; i < 20; i++ {
		label := dataset.LabelClean
		x := float64(i % 5)
		if i%4 == 0 {
			label = dataset.LabelDefective
			x += 10
		}
		instances = append(instances, dataset.Instance{Release: 1, Features: []float64{x, 2 * x, 3}, Label: label})
	}
	training := dataset.New("cfs", schema, instances)

	scorer, err := NewCFSEvaluator().Prepare(context.Background(), training)
	require.NoError(t, err)

	single := scorer.Merit([]int{0})
	assert.Greater(t, single, 0.8)
	assert.InDelta(t, single, scorer.Merit([]int{1}), 1e-9)
	assert.Equal(t, 0.0, scorer.Merit([]int{2}), "constant column has no correlation")
	assert.Equal(t, 0.0, scorer.Merit(nil))

	// a perfectly redundant copy adds nothing
	assert.InDelta(t, single, scorer.Merit([]int{0, 1}), 1e-9)
	// a useless feature dilutes the merit
	assert.Less(t, scorer.Merit([]int{0, 2}), single)
}

func TestCFSEvaluator_TooSmall(t *testing.T) {
	training := imbalanced(t, 1, 1)
	_, err := NewCFSEvaluator().Prepare(context.Background(), training)
	assert.Error(t, err)
}
