package analysis

import (
	"math"

	"defecteval/domain/evaluation"

	"github.com/montanaflynn/stats"
)

// SummaryKey identifies one treatment across releases
type SummaryKey struct {
	Selection  evaluation.FeatureSelectionPolicy
	Balancing  evaluation.BalancingPolicy
	Classifier evaluation.ClassifierKind
}

// MetricSummary is the central tendency of one score
type MetricSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	N      int     `json:"n"`
}

// TreatmentSummary aggregates every record of one treatment
type TreatmentSummary struct {
	SummaryKey
	Releases  int           `json:"releases"`
	Precision MetricSummary `json:"precision"`
	Recall    MetricSummary `json:"recall"`
	ROCArea   MetricSummary `json:"roc_area"`
	Kappa     MetricSummary `json:"kappa"`
}

// Summarize groups records by treatment, keeping the matrix order of first
// appearance. Undefined scores (NaN) are left out of their aggregate.
func Summarize(records []evaluation.Record) []TreatmentSummary {
	type bucket struct {
		key                           SummaryKey
		precision, recall, roc, kappa stats.Float64Data
		releases                      int
	}

	index := make(map[SummaryKey]int)
	var buckets []*bucket
	for _, r := range records {
		key := SummaryKey{Selection: r.FeatureSelection, Balancing: r.Balancing, Classifier: r.Classifier}
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, &bucket{key: key})
		}
		b := buckets[i]
		b.releases++
		b.precision = appendDefined(b.precision, r.Metrics.Precision)
		b.recall = appendDefined(b.recall, r.Metrics.Recall)
		b.roc = appendDefined(b.roc, r.Metrics.ROCArea)
		b.kappa = appendDefined(b.kappa, r.Metrics.Kappa)
	}

	out := make([]TreatmentSummary, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, TreatmentSummary{
			SummaryKey: b.key,
			Releases:   b.releases,
			Precision:  summarize(b.precision),
			Recall:     summarize(b.recall),
			ROCArea:    summarize(b.roc),
			Kappa:      summarize(b.kappa),
		})
	}
	return out
}

func appendDefined(data stats.Float64Data, v float64) stats.Float64Data {
	if math.IsNaN(v) {
		return data
	}
	return append(data, v)
}

func summarize(data stats.Float64Data) MetricSummary {
	if data.Len() == 0 {
		return MetricSummary{Mean: math.NaN(), Median: math.NaN()}
	}
	mean, _ := data.Mean()
	median, _ := data.Median()
	return MetricSummary{Mean: mean, Median: median, N: data.Len()}
}
