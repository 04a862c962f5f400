// Package tree implements CART decision trees for classification (Gini) and
// regression (MSE). Trees are the base learners of the ensemble package.
package tree

import (
	"math"

	"github.com/YuminosukeSato/predictive/core/model"
	"github.com/YuminosukeSato/predictive/pkg/errors"
)

// DecisionTree is a binary decision tree built by recursive partitioning.
// A fitted tree is immutable; Predict and PredictOne are safe for concurrent use.
type DecisionTree struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	criterion       Criterion

	root      Node
	nFeatures int
}

// Option configures a DecisionTree.
type Option func(*DecisionTree)

// WithMaxDepth sets the maximum depth of the tree. A depth of 0 yields a single leaf.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTree) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTree) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples each child of a split must hold.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTree) {
		dt.minSamplesLeaf = n
	}
}

// WithCriterion selects Gini (classification) or MSE (regression).
func WithCriterion(c Criterion) Option {
	return func(dt *DecisionTree) {
		dt.criterion = c
	}
}

// NewDecisionTree creates an unfitted tree. Defaults: max depth 10, min samples
// split 2, min samples leaf 1, Gini criterion.
func NewDecisionTree(opts ...Option) *DecisionTree {
	dt := &DecisionTree{
		maxDepth:        10,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		criterion:       Gini,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

func (dt *DecisionTree) validateParams() error {
	if dt.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative", dt.maxDepth)
	}
	if dt.minSamplesSplit < 1 {
		return errors.NewValidationError("min_samples_split", "must be at least 1", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	if !dt.criterion.Valid() {
		return errors.NewValidationError("criterion", "must be gini or mse", dt.criterion)
	}
	return nil
}

// Fit builds the tree from X and y. X and y are not retained or modified.
func (dt *DecisionTree) Fit(X [][]float64, y []float64) error {
	if err := dt.validateParams(); err != nil {
		return err
	}
	nFeatures, err := model.ValidateDataset("DecisionTree.Fit", X, y)
	if err != nil {
		return err
	}

	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	b := builder{tree: dt, X: X, y: y, nFeatures: nFeatures}
	dt.root = b.build(idx, 0)
	dt.nFeatures = nFeatures
	return nil
}

type builder struct {
	tree      *DecisionTree
	X         [][]float64
	y         []float64
	nFeatures int
}

func (b *builder) build(idx []int, depth int) Node {
	labels := make([]float64, len(idx))
	for i, r := range idx {
		labels[i] = b.y[r]
	}
	leaf := func() Node {
		return &Leaf{Value: b.tree.criterion.leafValue(labels), SampleCount: len(idx)}
	}

	if depth >= b.tree.maxDepth || len(idx) < b.tree.minSamplesSplit || allEqual(labels) {
		return leaf()
	}

	split, ok := findBestSplit(b.X, b.y, idx, b.nFeatures, b.tree.criterion)
	if !ok {
		return leaf()
	}

	var left, right []int
	for _, r := range idx {
		if b.X[r][split.Feature] <= split.Threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) < b.tree.minSamplesLeaf || len(right) < b.tree.minSamplesLeaf {
		return leaf()
	}

	return &Internal{
		Feature:     split.Feature,
		Threshold:   split.Threshold,
		Left:        b.build(left, depth+1),
		Right:       b.build(right, depth+1),
		SampleCount: len(idx),
	}
}

func allEqual(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// PredictOne returns the prediction for a single feature vector. The tree must be
// fitted and x must have at least NFeatures elements.
func (dt *DecisionTree) PredictOne(x []float64) float64 {
	if dt.root == nil {
		return math.NaN()
	}
	return Evaluate(dt.root, x)
}

// Predict returns one prediction per row of X.
func (dt *DecisionTree) Predict(X [][]float64) ([]float64, error) {
	if dt.root == nil {
		return nil, errors.NewNotFittedError("DecisionTree", "Predict")
	}
	if err := model.ValidateRows("DecisionTree.Predict", X, dt.nFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = Evaluate(dt.root, row)
	}
	return out, nil
}

// Root returns the root node, or nil before Fit.
func (dt *DecisionTree) Root() Node { return dt.root }

// IsFitted reports whether the tree has been fitted.
func (dt *DecisionTree) IsFitted() bool { return dt.root != nil }

// NFeatures returns the feature width seen during Fit.
func (dt *DecisionTree) NFeatures() int { return dt.nFeatures }

// Criterion returns the configured criterion.
func (dt *DecisionTree) Criterion() Criterion { return dt.criterion }

// Depth returns the number of edges on the longest root-to-leaf path.
func (dt *DecisionTree) Depth() int {
	if dt.root == nil {
		return 0
	}
	return depth(dt.root)
}

// LeafCount returns the number of leaves.
func (dt *DecisionTree) LeafCount() int {
	if dt.root == nil {
		return 0
	}
	return leafCount(dt.root)
}

// GetParams returns the hyperparameters.
func (dt *DecisionTree) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         string(dt.criterion),
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
	}
}
