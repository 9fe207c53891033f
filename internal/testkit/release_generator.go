package testkit

import (
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"

	"defecteval/domain/dataset"
)

// ReleaseSpec fixes the size and defect count of one generated release
type ReleaseSpec struct {
	Size      int `json:"size"`
	Defective int `json:"defective"`
}

// ReleaseGeneratorConfig configures the synthetic release generator
type ReleaseGeneratorConfig struct {
	Name     string        `json:"name"`
	Releases []ReleaseSpec `json:"releases"`
	Features int           `json:"features"`
	Signal   float64       `json:"signal"` // mean shift of defective instances on informative features
	Seed     int64         `json:"seed"`
}

// DefaultReleaseConfig returns a five-release project with a learnable signal
func DefaultReleaseConfig() ReleaseGeneratorConfig {
	return ReleaseGeneratorConfig{
		Name: "synthetic",
		Releases: []ReleaseSpec{
			{Size: 40, Defective: 10},
			{Size: 45, Defective: 9},
			{Size: 50, Defective: 12},
			{Size: 50, Defective: 8},
			{Size: 55, Defective: 11},
		},
		Features: 4,
		Signal:   3,
		Seed:     42,
	}
}

// ScenarioConfig returns three releases of ten instances with 2, 3 and 1
// defective instances
func ScenarioConfig() ReleaseGeneratorConfig {
	return ReleaseGeneratorConfig{
		Name: "scenario",
		Releases: []ReleaseSpec{
			{Size: 10, Defective: 2},
			{Size: 10, Defective: 3},
			{Size: 10, Defective: 1},
		},
		Features: 3,
		Signal:   2.5,
		Seed:     7,
	}
}

// ReleaseDataGenerator produces class-level metric datasets split into releases
type ReleaseDataGenerator struct {
	config ReleaseGeneratorConfig
	rng    *rand.Rand
}

// NewReleaseDataGenerator creates a new generator
func NewReleaseDataGenerator(config ReleaseGeneratorConfig) *ReleaseDataGenerator {
	return &ReleaseDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Schema returns the numeric feature schema with a Yes/No class attribute
func (g *ReleaseDataGenerator) Schema() dataset.Schema {
	decls := make([]string, 0, g.config.Features+1)
	for j := 0; j < g.config.Features; j++ {
		decls = append(decls, fmt.Sprintf("%s numeric", featureName(j)))
	}
	decls = append(decls, "Buggy {Yes,No}")
	schema, err := dataset.NewSchema(decls)
	if err != nil {
		panic(err) // declarations above are always valid
	}
	return schema
}

// Generate builds the dataset. Within a release the defective instances are
// spread evenly between clean ones. The first half of the features carry
// the signal; the rest is noise.
func (g *ReleaseDataGenerator) Generate() *dataset.Dataset {
	var instances []dataset.Instance
	informative := (g.config.Features + 1) / 2

	for r, spec := range g.config.Releases {
		for i := 0; i < spec.Size; i++ {
			defective := spec.Defective > 0 && i*spec.Defective/spec.Size != (i+1)*spec.Defective/spec.Size
			features := make([]float64, g.config.Features)
			for j := range features {
				v := 10 + 3*g.rng.NormFloat64()
				if defective && j < informative {
					v += g.config.Signal * 3
				}
				// two decimals, like the metric extractors emit
				features[j] = float64(int(v*100)) / 100
			}
			label := dataset.LabelClean
			if defective {
				label = dataset.LabelDefective
			}
			instances = append(instances, dataset.Instance{Release: r + 1, Features: features, Label: label})
		}
	}
	return dataset.New(g.config.Name, g.Schema(), instances)
}

// WriteDelimited renders a dataset the way the metric extractors do:
// a header row, then release, class identifier, features and label
func WriteDelimited(w io.Writer, ds *dataset.Dataset, sep string, tokens dataset.LabelTokens) error {
	header := append([]string{"Version", "File Name"}, ds.Schema.FeatureNames()...)
	header = append(header, ds.Schema.Class.Name)
	if _, err := fmt.Fprintln(w, strings.Join(header, sep)); err != nil {
		return err
	}

	for i, in := range ds.Instances {
		row := []string{strconv.Itoa(in.Release), fmt.Sprintf("src/main/java/org/example/Class%d.java", i)}
		for _, v := range in.Features {
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		row = append(row, tokens.Token(in.Label))
		if _, err := fmt.Fprintln(w, strings.Join(row, sep)); err != nil {
			return err
		}
	}
	return nil
}

// AttributeDeclarations returns the config declarations for a dataset schema
func AttributeDeclarations(schema dataset.Schema) []string {
	decls := make([]string, 0, schema.Width()+1)
	for _, f := range schema.Features {
		decls = append(decls, f.Declaration())
	}
	return append(decls, schema.Class.Declaration())
}

func featureName(j int) string {
	names := []string{"LOC", "NR", "NAuth", "Churn", "MaxChurn", "AvgChurn", "Age", "NFix"}
	if j < len(names) {
		return names[j]
	}
	return fmt.Sprintf("Metric%d", j+1)
}
