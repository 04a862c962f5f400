package tree

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/YuminosukeSato/predictive/pkg/errors"
)

// TestGiniImpurity tests the impurity of known label sets
func TestGiniImpurity(t *testing.T) {
	tests := []struct {
		name   string
		labels []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single class", []float64{1, 1, 1, 1}, 0},
		{"balanced binary", []float64{0, 1, 0, 1}, 0.5},
		{"three classes", []float64{0, 1, 2}, 1 - 3.0/9.0},
		{"skewed", []float64{0, 0, 0, 1}, 1 - (0.75*0.75 + 0.25*0.25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GiniImpurity(tt.labels)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("GiniImpurity(%v) = %v, want %v", tt.labels, got, tt.want)
			}
		})
	}
}

// TestVariance tests the regression impurity
func TestVariance(t *testing.T) {
	if got := Variance([]float64{1, 2, 3, 4}); math.Abs(got-1.25) > 1e-12 {
		t.Errorf("Variance = %v, want 1.25", got)
	}
	if Variance(nil) != 0 {
		t.Error("Variance of empty set should be 0")
	}
}

// TestMostCommon tests majority label selection and its tie-break
func TestMostCommon(t *testing.T) {
	tests := []struct {
		name   string
		labels []float64
		want   float64
	}{
		{"clear majority", []float64{2, 1, 2, 2, 1}, 2},
		{"tie goes to first seen", []float64{3, 1, 1, 3}, 3},
		{"tie goes to first seen reversed", []float64{1, 3, 3, 1}, 1},
		{"single", []float64{7}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MostCommon(tt.labels); got != tt.want {
				t.Errorf("MostCommon(%v) = %v, want %v", tt.labels, got, tt.want)
			}
		})
	}
}

// exhaustiveScore computes the weighted impurity of a split directly
func exhaustiveScore(X [][]float64, y []float64, feature int, threshold float64, c Criterion) float64 {
	var left, right []float64
	for i, row := range X {
		if row[feature] <= threshold {
			left = append(left, y[i])
		} else {
			right = append(right, y[i])
		}
	}
	n := float64(len(y))
	return (float64(len(left))*c.impurity(left) + float64(len(right))*c.impurity(right)) / n
}

// exhaustiveBest enumerates every midpoint candidate
func exhaustiveBest(X [][]float64, y []float64, c Criterion) (float64, bool) {
	best, found := math.Inf(1), false
	for f := range X[0] {
		values := make([]float64, 0, len(X))
		for _, row := range X {
			values = append(values, row[f])
		}
		sort.Float64s(values)
		for k := 0; k < len(values)-1; k++ {
			if values[k] == values[k+1] {
				continue
			}
			score := exhaustiveScore(X, y, f, (values[k]+values[k+1])/2, c)
			if score < best {
				best, found = score, true
			}
		}
	}
	return best, found
}

// TestFindBestSplit_MatchesExhaustiveSearch compares the sweep with brute force
func TestFindBestSplit_MatchesExhaustiveSearch(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for _, c := range []Criterion{Gini, MSE} {
		for trial := 0; trial < 25; trial++ {
			n, d := 5+rng.IntN(20), 1+rng.IntN(4)
			X := make([][]float64, n)
			y := make([]float64, n)
			for i := range X {
				X[i] = make([]float64, d)
				for j := range X[i] {
					X[i][j] = float64(rng.IntN(6))
				}
				if c == Gini {
					y[i] = float64(rng.IntN(3))
				} else {
					y[i] = rng.NormFloat64()
				}
			}

			split, ok := FindBestSplit(X, y, c)
			want, wantOK := exhaustiveBest(X, y, c)
			if ok != wantOK {
				t.Fatalf("%s trial %d: ok = %v, want %v", c, trial, ok, wantOK)
			}
			if !ok {
				continue
			}
			if math.Abs(split.Impurity-want) > 1e-9 {
				t.Errorf("%s trial %d: impurity %v, exhaustive %v", c, trial, split.Impurity, want)
			}
			if got := exhaustiveScore(X, y, split.Feature, split.Threshold, c); math.Abs(got-want) > 1e-9 {
				t.Errorf("%s trial %d: returned split scores %v, exhaustive best %v", c, trial, got, want)
			}
		}
	}
}

// TestFindBestSplit_Simple tests a perfectly separable feature
func TestFindBestSplit_Simple(t *testing.T) {
	X := [][]float64{{5, 0}, {5, 1}, {5, 2}, {5, 3}}
	y := []float64{0, 0, 1, 1}

	split, ok := FindBestSplit(X, y, Gini)
	if !ok {
		t.Fatal("expected a split")
	}
	if split.Feature != 1 || split.Threshold != 1.5 || split.Impurity != 0 {
		t.Errorf("got %+v, want feature 1 threshold 1.5 impurity 0", split)
	}
}

// TestFindBestSplit_NoSplit tests constant features
func TestFindBestSplit_NoSplit(t *testing.T) {
	X := [][]float64{{1, 2}, {1, 2}, {1, 2}}
	if _, ok := FindBestSplit(X, []float64{0, 1, 0}, Gini); ok {
		t.Error("constant features should not yield a split")
	}
	if _, ok := FindBestSplit(nil, nil, Gini); ok {
		t.Error("empty data should not yield a split")
	}
}

// TestDecisionTree_FitPredict_Binary tests binary classification
func TestDecisionTree_FitPredict_Binary(t *testing.T) {
	X := [][]float64{
		{0, 0}, {0, 1}, {1, 0}, {1, 1}, // class 0 (lower left)
		{3, 3}, {3, 4}, {4, 3}, {4, 4}, // class 1 (upper right)
	}
	y := []float64{0, 0, 0, 0, 1, 1, 1, 1}

	dt := NewDecisionTree(WithCriterion(Gini), WithMaxDepth(5))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	predictions, err := dt.Predict(X)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	for i, p := range predictions {
		if p != y[i] {
			t.Errorf("Sample %d: expected %v, got %v", i, y[i], p)
		}
	}

	if got := dt.PredictOne([]float64{0.5, 0.5}); got != 0 {
		t.Errorf("(0.5,0.5) should be class 0, got %v", got)
	}
	if got := dt.PredictOne([]float64{3.5, 3.5}); got != 1 {
		t.Errorf("(3.5,3.5) should be class 1, got %v", got)
	}
}

// TestDecisionTree_EndToEndScenario tests the documented four-point scenario
func TestDecisionTree_EndToEndScenario(t *testing.T) {
	dt := NewDecisionTree(WithMaxDepth(2))
	if err := dt.Fit([][]float64{{0}, {1}, {2}, {3}}, []float64{0, 0, 1, 1}); err != nil {
		t.Fatal(err)
	}
	got, err := dt.Predict([][]float64{{0}, {3}})
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 0 || got[1] != 1 {
		t.Errorf("predictions = %v, want [0 1]", got)
	}

	root, ok := dt.Root().(*Internal)
	if !ok {
		t.Fatalf("root should be internal, got %T", dt.Root())
	}
	if root.Threshold != 1.5 || root.SampleCount != 4 {
		t.Errorf("root = %+v", root)
	}
}

// TestDecisionTree_InfiniteFeatureValues tests thresholds next to ±Inf
func TestDecisionTree_InfiniteFeatureValues(t *testing.T) {
	tests := []struct {
		name          string
		X             [][]float64
		y             []float64
		wantThreshold float64
	}{
		{"negative infinity", [][]float64{{math.Inf(-1)}, {1}, {2}, {3}}, []float64{0, 1, 1, 1}, math.Inf(-1)},
		{"positive infinity", [][]float64{{0}, {1}, {math.Inf(1)}}, []float64{0, 0, 1}, 1},
		{"near max float", [][]float64{{-math.MaxFloat64}, {math.MaxFloat64}}, []float64{0, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt := NewDecisionTree(WithMaxDepth(3))
			if err := dt.Fit(tt.X, tt.y); err != nil {
				t.Fatal(err)
			}
			if dt.LeafCount() != 2 {
				t.Errorf("LeafCount() = %d, want 2", dt.LeafCount())
			}
			root, ok := dt.Root().(*Internal)
			if !ok {
				t.Fatalf("root should be internal, got %T", dt.Root())
			}
			if math.IsNaN(root.Threshold) || root.Threshold != tt.wantThreshold {
				t.Errorf("threshold = %v, want %v", root.Threshold, tt.wantThreshold)
			}
			got, err := dt.Predict(tt.X)
			if err != nil {
				t.Fatal(err)
			}
			for i := range got {
				if got[i] != tt.y[i] {
					t.Errorf("row %d: got %v, want %v", i, got[i], tt.y[i])
				}
			}
		})
	}
}

// TestDecisionTree_IdenticalLabels tests that a pure dataset yields one leaf
func TestDecisionTree_IdenticalLabels(t *testing.T) {
	X := [][]float64{{1, 9}, {2, 8}, {3, 7}, {4, 6}}
	y := []float64{4, 4, 4, 4}

	dt := NewDecisionTree()
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if dt.LeafCount() != 1 {
		t.Errorf("expected a single leaf, got %d", dt.LeafCount())
	}
	for _, x := range [][]float64{{-100, 0}, {2.5, 7.5}, {1e9, -1e9}} {
		if got := dt.PredictOne(x); got != 4 {
			t.Errorf("PredictOne(%v) = %v, want 4", x, got)
		}
	}
}

// TestDecisionTree_MaxDepth tests max depth constraint
func TestDecisionTree_MaxDepth(t *testing.T) {
	X := make([][]float64, 16)
	y := make([]float64, 16)
	for i := range X {
		X[i] = []float64{float64(i), float64(i % 4)}
		y[i] = float64(i % 2)
	}

	for _, maxDepth := range []int{0, 1, 2, 3} {
		dt := NewDecisionTree(WithMaxDepth(maxDepth))
		if err := dt.Fit(X, y); err != nil {
			t.Fatalf("Failed to fit: %v", err)
		}
		if depth := dt.Depth(); depth > maxDepth {
			t.Errorf("Tree depth %d exceeds max_depth=%d", depth, maxDepth)
		}
	}

	stump := NewDecisionTree(WithMaxDepth(0))
	_ = stump.Fit(X, y)
	if _, ok := stump.Root().(*Leaf); !ok {
		t.Errorf("max_depth=0 should produce a leaf root, got %T", stump.Root())
	}
}

// TestDecisionTree_MinSamples tests minimum samples constraints
func TestDecisionTree_MinSamples(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {3}}
	y := []float64{0, 0, 0, 1}

	// best split isolates a single sample on the right
	dt := NewDecisionTree(WithMinSamplesLeaf(2))
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if dt.LeafCount() != 1 {
		t.Errorf("min_samples_leaf=2 should prevent the split, got %d leaves", dt.LeafCount())
	}
	if got := dt.PredictOne([]float64{3}); got != 0 {
		t.Errorf("expected majority label 0, got %v", got)
	}

	dt = NewDecisionTree(WithMinSamplesSplit(5))
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if dt.LeafCount() != 1 {
		t.Errorf("min_samples_split=5 with 4 samples should give a leaf, got %d leaves", dt.LeafCount())
	}
}

// TestDecisionTree_Regression tests the MSE criterion
func TestDecisionTree_Regression(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
	y := []float64{1, 2, 3, 20, 21, 22}

	dt := NewDecisionTree(WithCriterion(MSE), WithMaxDepth(1))
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if got := dt.PredictOne([]float64{0}); math.Abs(got-2) > 1e-12 {
		t.Errorf("left leaf mean = %v, want 2", got)
	}
	if got := dt.PredictOne([]float64{100}); math.Abs(got-21) > 1e-12 {
		t.Errorf("right leaf mean = %v, want 21", got)
	}
}

// TestDecisionTree_InputsNotMutated tests that Fit leaves its inputs untouched
func TestDecisionTree_InputsNotMutated(t *testing.T) {
	X := [][]float64{{3}, {1}, {2}, {0}}
	y := []float64{1, 0, 1, 0}
	dt := NewDecisionTree()
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if X[0][0] != 3 || X[3][0] != 0 || y[0] != 1 || y[3] != 0 {
		t.Errorf("inputs mutated: X=%v y=%v", X, y)
	}
}

// TestDecisionTree_InvalidParams tests hyperparameter validation
func TestDecisionTree_InvalidParams(t *testing.T) {
	tests := []struct {
		name  string
		opt   Option
		param string
	}{
		{"negative depth", WithMaxDepth(-1), "max_depth"},
		{"zero split", WithMinSamplesSplit(0), "min_samples_split"},
		{"zero leaf", WithMinSamplesLeaf(0), "min_samples_leaf"},
		{"unknown criterion", WithCriterion("entropy"), "criterion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDecisionTree(tt.opt).Fit([][]float64{{1}, {2}}, []float64{0, 1})
			var vErr *errors.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.ParamName != tt.param {
				t.Errorf("param = %s, want %s", vErr.ParamName, tt.param)
			}
		})
	}
}

// TestDecisionTree_InvalidDataset tests dataset validation
func TestDecisionTree_InvalidDataset(t *testing.T) {
	dt := NewDecisionTree()
	var dsErr *errors.InvalidDatasetError
	if err := dt.Fit(nil, nil); !errors.As(err, &dsErr) {
		t.Errorf("empty X: expected InvalidDatasetError, got %v", err)
	}
	if err := dt.Fit([][]float64{{1}, {2}}, []float64{1}); !errors.As(err, &dsErr) {
		t.Errorf("length mismatch: expected InvalidDatasetError, got %v", err)
	}
}

// TestDecisionTree_NotFitted tests error when predicting without fitting
func TestDecisionTree_NotFitted(t *testing.T) {
	_, err := NewDecisionTree().Predict([][]float64{{1, 2}})
	var nfErr *errors.NotFittedError
	if !errors.As(err, &nfErr) {
		t.Errorf("expected NotFittedError, got %v", err)
	}
}

// TestDecisionTree_PredictDimensionMismatch tests the width check
func TestDecisionTree_PredictDimensionMismatch(t *testing.T) {
	dt := NewDecisionTree()
	if err := dt.Fit([][]float64{{0, 1}, {1, 0}}, []float64{0, 1}); err != nil {
		t.Fatal(err)
	}
	_, err := dt.Predict([][]float64{{1}})
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError, got %v", err)
	}
}

// TestDecisionTree_GetParams tests default hyperparameters
func TestDecisionTree_GetParams(t *testing.T) {
	params := NewDecisionTree().GetParams()
	want := map[string]interface{}{
		"criterion":         "gini",
		"max_depth":         10,
		"min_samples_split": 2,
		"min_samples_leaf":  1,
	}
	for k, v := range want {
		if params[k] != v {
			t.Errorf("%s = %v, want %v", k, params[k], v)
		}
	}
}

// TestDecisionTree_JSONRoundTrip tests serialization through flat nodes
func TestDecisionTree_JSONRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	X := make([][]float64, 60)
	y := make([]float64, 60)
	for i := range X {
		X[i] = []float64{rng.Float64(), rng.Float64(), rng.Float64()}
		if X[i][0]+X[i][2] > 1 {
			y[i] = 1
		}
	}

	dt := NewDecisionTree(WithMaxDepth(4), WithMinSamplesLeaf(2))
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(dt)
	if err != nil {
		t.Fatal(err)
	}
	var restored DecisionTree
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatal(err)
	}

	if restored.Depth() != dt.Depth() || restored.LeafCount() != dt.LeafCount() {
		t.Errorf("shape changed: depth %d/%d leaves %d/%d",
			restored.Depth(), dt.Depth(), restored.LeafCount(), dt.LeafCount())
	}
	if restored.NFeatures() != 3 || restored.GetParams()["min_samples_leaf"] != 2 {
		t.Errorf("metadata lost: %v", restored.GetParams())
	}
	for i, row := range X {
		if restored.PredictOne(row) != dt.PredictOne(row) {
			t.Fatalf("row %d: prediction changed after round trip", i)
		}
	}
}

// TestFlatten tests pre-order layout of a hand-built tree
func TestFlatten(t *testing.T) {
	root := &Internal{
		Feature: 0, Threshold: 1.5, SampleCount: 3,
		Left: &Leaf{Value: 0, SampleCount: 1},
		Right: &Internal{
			Feature: 1, Threshold: 0.5, SampleCount: 2,
			Left:  &Leaf{Value: 1, SampleCount: 1},
			Right: &Leaf{Value: 2, SampleCount: 1},
		},
	}

	flat := Flatten(root)
	if len(flat) != 5 {
		t.Fatalf("expected 5 nodes, got %d", len(flat))
	}
	if flat[0].Left != 1 || flat[0].Right != 2 || flat[2].Left != 3 || flat[2].Right != 4 {
		t.Errorf("unexpected layout: %+v", flat)
	}
	if !flat[4].Leaf || flat[4].Value != 2 {
		t.Errorf("last node = %+v", flat[4])
	}

	back, err := Unflatten(flat)
	if err != nil {
		t.Fatal(err)
	}
	if got := Evaluate(back, []float64{2, 1}); got != 2 {
		t.Errorf("Evaluate = %v, want 2", got)
	}
}

// TestUnflatten_Rejects tests malformed node lists
func TestUnflatten_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		nodes []FlatNode
	}{
		{"empty", nil},
		{"cycle", []FlatNode{{ID: 0, Left: 0, Right: 1, Feature: 0}, {ID: 1, Leaf: true, Left: -1, Right: -1}}},
		{"out of range", []FlatNode{{ID: 0, Left: 1, Right: 5, Feature: 0}, {ID: 1, Leaf: true, Left: -1, Right: -1}}},
		{"shared child", []FlatNode{{ID: 0, Left: 1, Right: 1, Feature: 0}, {ID: 1, Leaf: true, Left: -1, Right: -1}}},
		{"negative feature", []FlatNode{
			{ID: 0, Left: 1, Right: 2, Feature: -1},
			{ID: 1, Leaf: true, Left: -1, Right: -1},
			{ID: 2, Leaf: true, Left: -1, Right: -1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unflatten(tt.nodes); err == nil {
				t.Error("expected error")
			}
		})
	}
}
