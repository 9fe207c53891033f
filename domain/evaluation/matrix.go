package evaluation

import (
	"fmt"
	"sort"
)

// Cell identifies one (release, selection, balancing, classifier) combination
type Cell struct {
	Release    int                    `json:"release"`
	Selection  FeatureSelectionPolicy `json:"selection"`
	Balancing  BalancingPolicy        `json:"balancing"`
	Classifier ClassifierKind         `json:"classifier"`
	Index      int                    `json:"index"` // position within the release
}

// String renders the cell identity for log lines
func (c Cell) String() string {
	return fmt.Sprintf("release=%d selection=%q balancing=%q classifier=%q",
		c.Release, c.Selection, c.Balancing, c.Classifier)
}

// Matrix is the experiment design: which policies and classifiers are crossed.
// Enumeration order is fixed (selection, then balancing, then classifier,
// innermost fastest) no matter in which order the members were supplied.
type Matrix struct {
	Selections  []FeatureSelectionPolicy
	Balancings  []BalancingPolicy
	Classifiers []ClassifierKind
}

// FullMatrix crosses every policy and classifier
func FullMatrix() Matrix {
	return Matrix{
		Selections:  AllFeatureSelectionPolicies(),
		Balancings:  AllBalancingPolicies(),
		Classifiers: AllClassifierKinds(),
	}
}

// NewMatrix builds a matrix from subsets, restoring canonical order and
// dropping duplicates. Empty subsets mean "all".
func NewMatrix(selections []FeatureSelectionPolicy, balancings []BalancingPolicy, classifiers []ClassifierKind) Matrix {
	m := FullMatrix()
	if len(selections) > 0 {
		m.Selections = canonical(selections)
	}
	if len(balancings) > 0 {
		m.Balancings = canonical(balancings)
	}
	if len(classifiers) > 0 {
		m.Classifiers = canonical(classifiers)
	}
	return m
}

func canonical[T ~int](in []T) []T {
	seen := make(map[T]bool, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CellsPerRelease returns the number of cells evaluated for one release
func (m Matrix) CellsPerRelease() int {
	return len(m.Selections) * len(m.Balancings) * len(m.Classifiers)
}

// ExpectedRecords returns the record count of a run with no failed cells
func (m Matrix) ExpectedRecords(releasesEvaluated int) int {
	return releasesEvaluated * m.CellsPerRelease()
}

// Cells enumerates the cells of one release in output order
func (m Matrix) Cells(release int) []Cell {
	cells := make([]Cell, 0, m.CellsPerRelease())
	for _, sel := range m.Selections {
		for _, bal := range m.Balancings {
			for _, cls := range m.Classifiers {
				cells = append(cells, Cell{
					Release:    release,
					Selection:  sel,
					Balancing:  bal,
					Classifier: cls,
					Index:      len(cells),
				})
			}
		}
	}
	return cells
}
