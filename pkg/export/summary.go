package export

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// AmountProvider is implemented by resident datasets that expose a numeric
// value column; the confirmation dialog uses it to summarize what is about
// to be exported.
type AmountProvider interface {
	Amounts() []float64
}

// ValueSummary describes the distribution of a dataset's value column.
type ValueSummary struct {
	Rows   int
	Total  float64
	Mean   float64
	Median float64
	P90    float64
}

// Summarize computes a ValueSummary. Returns ok=false for empty input.
func Summarize(values []float64) (ValueSummary, bool) {
	if len(values) == 0 {
		return ValueSummary{}, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var total float64
	for _, v := range sorted {
		total += v
	}

	return ValueSummary{
		Rows:   len(sorted),
		Total:  total,
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, sorted, nil),
	}, true
}

// SummarizeResident summarizes a resident dataset when it can provide
// amounts; ok=false otherwise.
func SummarizeResident(rows ResidentData) (ValueSummary, bool) {
	ap, ok := rows.(AmountProvider)
	if !ok {
		return ValueSummary{}, false
	}
	return Summarize(ap.Amounts())
}
