package learn

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"defecteval/domain/dataset"
	"defecteval/domain/evaluation"
	"defecteval/internal/errors"
	"defecteval/ports"
)

// DefaultTrees is the forest size used by the factory
const DefaultTrees = 100

// RandomForest bags unpruned gini CART trees grown on bootstrap samples,
// trying floor(log2 M)+1 random features at every split
type RandomForest struct {
	Trees int
	Seed  int64

	width  int
	forest []*treeNode
	fitted bool
}

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	prob      float64 // defect share at a leaf
	leaf      bool
}

// NewRandomForest creates an unfitted forest
func NewRandomForest(trees int, seed int64) *RandomForest {
	if trees < 1 {
		trees = DefaultTrees
	}
	return &RandomForest{Trees: trees, Seed: seed}
}

// Kind returns the classifier kind
func (rf *RandomForest) Kind() evaluation.ClassifierKind {
	return evaluation.ClassifierRandomForest
}

// Fit grows the forest. Trees are grown in sequence from one seeded stream,
// so a given seed always yields the same forest.
func (rf *RandomForest) Fit(ctx context.Context, training *dataset.Dataset) error {
	if err := checkTrainable("random forest", training); err != nil {
		return err
	}

	width := training.Schema.Width()
	g := &grower{
		rng:       rand.New(rand.NewSource(rf.Seed)),
		points:    make([][]float64, training.Len()),
		defective: make([]bool, training.Len()),
		tries:     featuresPerSplit(width),
		width:     width,
	}
	for i, in := range training.Instances {
		g.points[i] = in.Features
		g.defective[i] = in.IsDefective()
	}

	forest := make([]*treeNode, 0, rf.Trees)
	n := training.Len()
	for t := 0; t < rf.Trees; t++ {
		if err := ctx.Err(); err != nil {
			return errors.ModelFitError("random forest: fit cancelled", err)
		}
		sample := make([]int, n)
		for i := range sample {
			sample[i] = g.rng.Intn(n)
		}
		forest = append(forest, g.grow(sample))
	}

	rf.width = width
	rf.forest = forest
	rf.fitted = true
	return nil
}

// Predict averages the leaf defect shares of all trees
func (rf *RandomForest) Predict(ctx context.Context, testing *dataset.Dataset) ([]ports.Prediction, error) {
	if err := checkPredictable("random forest", rf.fitted, rf.width, testing); err != nil {
		return nil, err
	}

	predictions := make([]ports.Prediction, testing.Len())
	for i, in := range testing.Instances {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var sum float64
		for _, root := range rf.forest {
			sum += root.classify(in.Features)
		}
		p := sum / float64(len(rf.forest))
		predictions[i] = ports.Prediction{Label: labelFor(p), DefectProbability: p}
	}
	return predictions, nil
}

func featuresPerSplit(width int) int {
	k := int(math.Log2(float64(width))) + 1
	if k > width {
		k = width
	}
	if k < 1 {
		k = 1
	}
	return k
}

func (n *treeNode) classify(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.prob
}

// grower holds the shared state of one forest's tree induction
type grower struct {
	rng       *rand.Rand
	points    [][]float64
	defective []bool
	tries     int
	width     int
}

func (g *grower) grow(rows []int) *treeNode {
	pos := 0
	for _, r := range rows {
		if g.defective[r] {
			pos++
		}
	}
	leaf := &treeNode{leaf: true, prob: float64(pos) / float64(len(rows))}
	if pos == 0 || pos == len(rows) || len(rows) < 2 {
		return leaf
	}

	best := g.bestSplit(rows, pos)
	if best.feature < 0 {
		return leaf
	}

	var left, right []int
	for _, r := range rows {
		if g.points[r][best.feature] <= best.threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	// adjacent floats can collapse the midpoint onto one side
	if len(left) == 0 || len(right) == 0 {
		return leaf
	}
	return &treeNode{
		feature:   best.feature,
		threshold: best.threshold,
		left:      g.grow(left),
		right:     g.grow(right),
	}
}

type split struct {
	feature   int
	threshold float64
	impurity  float64
}

// bestSplit tries g.tries random features. If none of them separates the
// rows, the remaining features are tried before giving up.
func (g *grower) bestSplit(rows []int, pos int) split {
	best := split{feature: -1, impurity: math.Inf(1)}
	candidates := g.rng.Perm(g.width)
	for tried, f := range candidates {
		if tried >= g.tries && best.feature >= 0 {
			break
		}
		if s, ok := g.splitOn(f, rows, pos); ok && s.impurity < best.impurity {
			best = s
		}
	}
	return best
}

// splitOn finds the threshold of feature f with the lowest weighted gini
func (g *grower) splitOn(f int, rows []int, pos int) (split, bool) {
	sorted := append([]int(nil), rows...)
	sort.SliceStable(sorted, func(a, b int) bool { return g.points[sorted[a]][f] < g.points[sorted[b]][f] })

	n := len(sorted)
	best := split{feature: -1, impurity: math.Inf(1)}
	leftPos := 0
	for i := 0; i < n-1; i++ {
		if g.defective[sorted[i]] {
			leftPos++
		}
		lo, hi := g.points[sorted[i]][f], g.points[sorted[i+1]][f]
		if lo == hi {
			continue
		}
		nl, nr := i+1, n-i-1
		imp := (float64(nl)*gini(leftPos, nl) + float64(nr)*gini(pos-leftPos, nr)) / float64(n)
		if imp < best.impurity {
			best = split{feature: f, threshold: (lo + hi) / 2, impurity: imp}
		}
	}
	return best, best.feature >= 0
}

func gini(pos, n int) float64 {
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
