package dataset

import (
	"fmt"
	"sort"

	"defecteval/domain/core"
)

// Label is the binary class of an instance
type Label int

const (
	LabelClean Label = iota
	LabelDefective
)

// String returns the label name
func (l Label) String() string {
	if l == LabelDefective {
		return "defective"
	}
	return "clean"
}

// Other returns the opposite label
func (l Label) Other() Label {
	if l == LabelDefective {
		return LabelClean
	}
	return LabelDefective
}

// LabelTokens maps the literal tokens of the label column to labels
type LabelTokens struct {
	Defective string `json:"defective"`
	Clean     string `json:"clean"`
}

// DefaultLabelTokens returns the Yes/No tokens used by the metric extractors
func DefaultLabelTokens() LabelTokens {
	return LabelTokens{Defective: "Yes", Clean: "No"}
}

// Parse converts a raw token into a label
func (t LabelTokens) Parse(token string) (Label, error) {
	switch token {
	case t.Defective:
		return LabelDefective, nil
	case t.Clean:
		return LabelClean, nil
	default:
		return LabelClean, fmt.Errorf("unknown label token %q (expected %q or %q)", token, t.Defective, t.Clean)
	}
}

// Token converts a label back into its literal token
func (t LabelTokens) Token(l Label) string {
	if l == LabelDefective {
		return t.Defective
	}
	return t.Clean
}

// Instance is one class-level metric vector of one release
type Instance struct {
	Release  int       `json:"release"`
	Features []float64 `json:"features"`
	Label    Label     `json:"label"`
}

// IsDefective reports whether the instance carries the positive label
func (in Instance) IsDefective() bool {
	return in.Label == LabelDefective
}

// Dataset is an ordered collection of instances sharing one schema.
// Instances are treated as immutable: components that change a dataset
// build a new one and never write through the shared feature slices.
type Dataset struct {
	Name      string     `json:"name"`
	Schema    Schema     `json:"schema"`
	Instances []Instance `json:"instances"`
}

// New creates a dataset
func New(name string, schema Schema, instances []Instance) *Dataset {
	return &Dataset{Name: name, Schema: schema, Instances: instances}
}

// Len returns the number of instances
func (d *Dataset) Len() int {
	return len(d.Instances)
}

// ClassCount returns the number of instances carrying label l
func (d *Dataset) ClassCount(l Label) int {
	n := 0
	for _, in := range d.Instances {
		if in.Label == l {
			n++
		}
	}
	return n
}

// DefectCount returns the number of defective instances
func (d *Dataset) DefectCount() int {
	return d.ClassCount(LabelDefective)
}

// DefectRate returns the defective share, 0 for an empty dataset
func (d *Dataset) DefectRate() float64 {
	if len(d.Instances) == 0 {
		return 0
	}
	return float64(d.DefectCount()) / float64(len(d.Instances))
}

// MinorityLabel returns the less frequent class; ties resolve to defective
func (d *Dataset) MinorityLabel() Label {
	if d.DefectCount() <= d.ClassCount(LabelClean) {
		return LabelDefective
	}
	return LabelClean
}

// WithInstances returns a dataset with the same name and schema
func (d *Dataset) WithInstances(instances []Instance) *Dataset {
	return &Dataset{Name: d.Name, Schema: d.Schema, Instances: instances}
}

// Filter returns the instances matching keep, in original order
func (d *Dataset) Filter(keep func(Instance) bool) *Dataset {
	var out []Instance
	for _, in := range d.Instances {
		if keep(in) {
			out = append(out, in)
		}
	}
	return d.WithInstances(out)
}

// Column returns feature j for every instance
func (d *Dataset) Column(j int) []float64 {
	col := make([]float64, len(d.Instances))
	for i, in := range d.Instances {
		col[i] = in.Features[j]
	}
	return col
}

// ClassVector returns 1 for defective and 0 for clean instances
func (d *Dataset) ClassVector() []float64 {
	y := make([]float64, len(d.Instances))
	for i, in := range d.Instances {
		if in.IsDefective() {
			y[i] = 1
		}
	}
	return y
}

// MaxRelease returns the highest release ordinal, 0 when empty
func (d *Dataset) MaxRelease() int {
	max := 0
	for _, in := range d.Instances {
		if in.Release > max {
			max = in.Release
		}
	}
	return max
}

// ReleaseCount summarises one release
type ReleaseCount struct {
	Release   int `json:"release"`
	Total     int `json:"total"`
	Defective int `json:"defective"`
}

// ReleaseCounts returns per-release totals in ascending release order
func (d *Dataset) ReleaseCounts() []ReleaseCount {
	byRelease := make(map[int]*ReleaseCount)
	for _, in := range d.Instances {
		rc, ok := byRelease[in.Release]
		if !ok {
			rc = &ReleaseCount{Release: in.Release}
			byRelease[in.Release] = rc
		}
		rc.Total++
		if in.IsDefective() {
			rc.Defective++
		}
	}

	counts := make([]ReleaseCount, 0, len(byRelease))
	for _, rc := range byRelease {
		counts = append(counts, *rc)
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Release < counts[j].Release })
	return counts
}

// ValidateReleaseOrdering checks that release ordinals start at 1 and never
// decrease or skip a value. The walk-forward split relies on this.
func ValidateReleaseOrdering(instances []Instance) error {
	previous := 0
	for i, in := range instances {
		if in.Release < 1 {
			return core.NewValidationError("release", fmt.Sprintf("row %d has ordinal %d", i+1, in.Release))
		}
		if in.Release != previous && in.Release != previous+1 {
			return core.NewReleaseOrderingError(i+1, previous, in.Release)
		}
		previous = in.Release
	}
	return nil
}

// Validate checks every instance against the schema width
func (d *Dataset) Validate() error {
	width := d.Schema.Width()
	for i, in := range d.Instances {
		if len(in.Features) != width {
			return core.NewValidationError("instance", fmt.Sprintf("row %d has %d features, schema has %d", i+1, len(in.Features), width))
		}
	}
	return nil
}
