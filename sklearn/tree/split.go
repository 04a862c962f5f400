package tree

import (
	"math"
	"sort"
)

// Split is a candidate partition x[Feature] <= Threshold together with the
// size-weighted impurity of the two sides.
type Split struct {
	Feature   int
	Threshold float64
	Impurity  float64
}

// FindBestSplit searches every feature for the threshold minimizing the weighted
// impurity of the induced partition. Candidate thresholds are midpoints between
// adjacent distinct values. Ties keep the first candidate in (feature, threshold)
// ascending order. ok is false when no feature separates the rows.
func FindBestSplit(X [][]float64, y []float64, criterion Criterion) (split Split, ok bool) {
	if len(X) == 0 {
		return Split{}, false
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return findBestSplit(X, y, idx, len(X[0]), criterion)
}

func findBestSplit(X [][]float64, y []float64, idx []int, nFeatures int, criterion Criterion) (Split, bool) {
	n := len(idx)
	best := Split{Impurity: math.Inf(1)}
	found := false
	if n < 2 {
		return best, false
	}

	order := make([]int, n)
	for f := 0; f < nFeatures; f++ {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool {
			return X[order[a]][f] < X[order[b]][f]
		})

		sw := newSweep(criterion, y, order)
		for k := 0; k < n-1; k++ {
			sw.moveLeft(y[order[k]])
			lo, hi := X[order[k]][f], X[order[k+1]][f]
			if lo == hi {
				continue
			}
			score := sw.score()
			if score < best.Impurity {
				// lo/2 + hi/2 stays finite near ±MaxFloat64 and gives -Inf when lo is -Inf
				threshold := lo/2 + hi/2
				if threshold >= hi {
					threshold = lo
				}
				best = Split{Feature: f, Threshold: threshold, Impurity: score}
				found = true
			}
		}
	}
	return best, found
}

// sweep maintains impurity statistics for a left/right partition while rows move
// from right to left in sorted order.
type sweep interface {
	moveLeft(label float64)
	score() float64
}

func newSweep(c Criterion, y []float64, order []int) sweep {
	if c == MSE {
		s := &varianceSweep{nR: float64(len(order))}
		for _, i := range order {
			s.sumR += y[i]
			s.sqR += y[i] * y[i]
		}
		return s
	}
	s := &giniSweep{
		left:  make(map[float64]int),
		right: make(map[float64]int),
		nR:    float64(len(order)),
	}
	for _, i := range order {
		s.right[y[i]]++
	}
	for _, c := range s.right {
		s.sqR += float64(c * c)
	}
	return s
}

// giniSweep tracks class counts and the running sum of squared counts per side.
type giniSweep struct {
	left, right map[float64]int
	sqL, sqR    float64
	nL, nR      float64
}

func (s *giniSweep) moveLeft(label float64) {
	c := s.right[label]
	s.sqR -= float64(2*c - 1)
	s.right[label] = c - 1
	s.nR--

	c = s.left[label]
	s.sqL += float64(2*c + 1)
	s.left[label] = c + 1
	s.nL++
}

func (s *giniSweep) score() float64 {
	giniL := 1 - s.sqL/(s.nL*s.nL)
	giniR := 1 - s.sqR/(s.nR*s.nR)
	return (s.nL*giniL + s.nR*giniR) / (s.nL + s.nR)
}

// varianceSweep tracks sums and sums of squares per side.
type varianceSweep struct {
	sumL, sqL, sumR, sqR float64
	nL, nR               float64
}

func (s *varianceSweep) moveLeft(v float64) {
	s.sumR -= v
	s.sqR -= v * v
	s.nR--
	s.sumL += v
	s.sqL += v * v
	s.nL++
}

func (s *varianceSweep) score() float64 {
	sseL := math.Max(0, s.sqL-s.sumL*s.sumL/s.nL)
	sseR := math.Max(0, s.sqR-s.sumR*s.sumR/s.nR)
	return (sseL + sseR) / (s.nL + s.nR)
}
