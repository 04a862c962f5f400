package tree

import "gonum.org/v1/gonum/stat"

// Criterion selects the impurity measure used for split search and the leaf value.
type Criterion string

const (
	// Gini scores splits by Gini impurity and predicts the majority label.
	Gini Criterion = "gini"
	// MSE scores splits by variance and predicts the mean target.
	MSE Criterion = "mse"
)

// Valid reports whether c is a known criterion.
func (c Criterion) Valid() bool {
	return c == Gini || c == MSE
}

// GiniImpurity returns 1 - Σ p_c² over the class proportions of labels.
// It is 0 for an empty or single-class set and 0.5 for a balanced two-class set.
func GiniImpurity(labels []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[float64]int)
	for _, l := range labels {
		counts[l]++
	}
	n := float64(len(labels))
	impurity := 1.0
	for _, c := range counts {
		p := float64(c) / n
		impurity -= p * p
	}
	return impurity
}

// Variance returns the population variance of values, 0 for an empty set.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.PopVariance(values, nil)
}

// MostCommon returns the label with the highest count. Ties go to the label
// encountered first. It returns 0 for an empty set.
func MostCommon(labels []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[float64]int)
	best, bestCount := labels[0], 0
	for _, l := range labels {
		counts[l]++
	}
	// second pass in input order keeps the first-encountered winner on ties
	for _, l := range labels {
		if c := counts[l]; c > bestCount {
			best, bestCount = l, c
		}
	}
	return best
}

func (c Criterion) impurity(values []float64) float64 {
	if c == MSE {
		return Variance(values)
	}
	return GiniImpurity(values)
}

func (c Criterion) leafValue(values []float64) float64 {
	if c == MSE {
		if len(values) == 0 {
			return 0
		}
		return stat.Mean(values, nil)
	}
	return MostCommon(values)
}
