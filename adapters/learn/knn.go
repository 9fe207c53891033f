package learn

import (
	"context"
	"sort"

	"defecteval/domain/dataset"
	"defecteval/domain/evaluation"
	"defecteval/ports"

	"gonum.org/v1/gonum/floats"
)

// KNN is an instance-based classifier using min-max normalised Euclidean
// distance. The bounds come from the training set only.
type KNN struct {
	K int

	width  int
	mins   []float64
	ranges []float64
	points [][]float64
	labels []dataset.Label
	fitted bool
}

// NewKNN creates a k-nearest-neighbour classifier; k < 1 means 1
func NewKNN(k int) *KNN {
	if k < 1 {
		k = 1
	}
	return &KNN{K: k}
}

// Kind returns the classifier kind
func (m *KNN) Kind() evaluation.ClassifierKind {
	return evaluation.ClassifierKNN
}

// Fit stores the normalised training instances
func (m *KNN) Fit(ctx context.Context, training *dataset.Dataset) error {
	if err := checkTrainable("knn", training); err != nil {
		return err
	}

	width := training.Schema.Width()
	mins := make([]float64, width)
	ranges := make([]float64, width)
	for j := 0; j < width; j++ {
		col := training.Column(j)
		lo, hi := floats.Min(col), floats.Max(col)
		mins[j] = lo
		ranges[j] = hi - lo
	}

	m.width = width
	m.mins = mins
	m.ranges = ranges
	m.points = make([][]float64, training.Len())
	m.labels = make([]dataset.Label, training.Len())
	for i, in := range training.Instances {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		m.points[i] = m.normalise(in.Features)
		m.labels[i] = in.Label
	}
	m.fitted = true
	return nil
}

// Predict votes among the K nearest training instances. Equal distances keep
// training order, so the earliest instance wins a tie.
func (m *KNN) Predict(ctx context.Context, testing *dataset.Dataset) ([]ports.Prediction, error) {
	if err := checkPredictable("knn", m.fitted, m.width, testing); err != nil {
		return nil, err
	}

	k := m.K
	if k > len(m.points) {
		k = len(m.points)
	}

	predictions := make([]ports.Prediction, testing.Len())
	order := make([]int, len(m.points))
	dist := make([]float64, len(m.points))
	for i, in := range testing.Instances {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q := m.normalise(in.Features)
		for t, p := range m.points {
			order[t] = t
			dist[t] = floats.Distance(q, p, 2)
		}
		sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] < dist[order[b]] })

		defective := 0
		for _, t := range order[:k] {
			if m.labels[t] == dataset.LabelDefective {
				defective++
			}
		}
		p := float64(defective) / float64(k)
		predictions[i] = ports.Prediction{Label: labelFor(p), DefectProbability: p}
	}
	return predictions, nil
}

func (m *KNN) normalise(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		if m.ranges[j] == 0 {
			continue
		}
		out[j] = (v - m.mins[j]) / m.ranges[j]
	}
	return out
}
