// Package ensemble provides tree ensembles: a bagged random forest classifier and
// a least-squares gradient boosting regressor.
package ensemble

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/YuminosukeSato/predictive/core/model"
	"github.com/YuminosukeSato/predictive/core/parallel"
	"github.com/YuminosukeSato/predictive/pkg/errors"
	"github.com/YuminosukeSato/predictive/pkg/log"
	"github.com/YuminosukeSato/predictive/sklearn/tree"
)

// Member is one tree of a forest together with the feature indices it was trained on.
type Member struct {
	Tree     *tree.DecisionTree `json:"tree"`
	Features []int              `json:"features"`
}

// RandomForest is a majority-vote ensemble of decision trees, each trained on a
// bootstrap sample of the rows restricted to a random subset of the features.
type RandomForest struct {
	nTrees          int
	maxDepth        int
	minSamplesSplit int
	sampleRatio     float64
	featureRatio    float64
	randomState     int64
	nJobs           int

	members   []Member
	nFeatures int
}

// ForestOption configures a RandomForest.
type ForestOption func(*RandomForest)

// WithNTrees sets the number of trees.
func WithNTrees(n int) ForestOption {
	return func(f *RandomForest) { f.nTrees = n }
}

// WithForestMaxDepth sets the maximum depth of every tree.
func WithForestMaxDepth(depth int) ForestOption {
	return func(f *RandomForest) { f.maxDepth = depth }
}

// WithForestMinSamplesSplit sets the minimum samples required to split a node.
func WithForestMinSamplesSplit(n int) ForestOption {
	return func(f *RandomForest) { f.minSamplesSplit = n }
}

// WithSampleRatio sets the bootstrap sample size as a fraction of the rows.
func WithSampleRatio(r float64) ForestOption {
	return func(f *RandomForest) { f.sampleRatio = r }
}

// WithFeatureRatio sets the fraction of features drawn for each tree.
func WithFeatureRatio(r float64) ForestOption {
	return func(f *RandomForest) { f.featureRatio = r }
}

// WithRandomState sets the seed. A negative value seeds from the clock.
func WithRandomState(seed int64) ForestOption {
	return func(f *RandomForest) { f.randomState = seed }
}

// WithNJobs sets the number of trees trained concurrently. n <= 0 uses every CPU.
func WithNJobs(n int) ForestOption {
	return func(f *RandomForest) { f.nJobs = n }
}

// NewRandomForest creates an unfitted forest. Defaults: 10 trees, max depth 10,
// min samples split 2, sample ratio 0.8, feature ratio 0.7, clock seed.
func NewRandomForest(opts ...ForestOption) *RandomForest {
	f := &RandomForest{
		nTrees:          10,
		maxDepth:        10,
		minSamplesSplit: 2,
		sampleRatio:     0.8,
		featureRatio:    0.7,
		randomState:     -1,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *RandomForest) validateParams() error {
	if f.nTrees < 1 {
		return errors.NewValidationError("n_trees", "must be at least 1", f.nTrees)
	}
	if f.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative", f.maxDepth)
	}
	if f.minSamplesSplit < 1 {
		return errors.NewValidationError("min_samples_split", "must be at least 1", f.minSamplesSplit)
	}
	if !(f.sampleRatio > 0 && f.sampleRatio <= 1) {
		return errors.NewValidationError("sample_ratio", "must be in (0, 1]", f.sampleRatio)
	}
	if !(f.featureRatio > 0 && f.featureRatio <= 1) {
		return errors.NewValidationError("feature_ratio", "must be in (0, 1]", f.featureRatio)
	}
	return nil
}

// Fit trains the forest. Per-tree generators are seeded from the forest's master
// generator before any tree is built, so a fixed seed gives the same forest
// regardless of how trees are scheduled across workers.
func (f *RandomForest) Fit(X [][]float64, y []float64) error {
	if err := f.validateParams(); err != nil {
		return err
	}
	nFeatures, err := model.ValidateDataset("RandomForest.Fit", X, y)
	if err != nil {
		return err
	}

	seed := f.randomState
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	master := rand.New(rand.NewSource(seed))
	seeds := make([]int64, f.nTrees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	nSamples := max(1, int(math.Floor(float64(len(X))*f.sampleRatio)))
	nSelected := 0
	if nFeatures > 0 {
		nSelected = max(1, int(math.Floor(float64(nFeatures)*f.featureRatio)))
	}

	members := make([]Member, f.nTrees)
	errs := make([]error, f.nTrees)
	parallel.Parallelize(f.nTrees, f.nJobs, func(start, end int) {
		for i := start; i < end; i++ {
			rng := rand.New(rand.NewSource(seeds[i]))
			errs[i] = errors.SafeExecute("RandomForest.fitMember", func() error {
				var err error
				members[i], err = f.fitMember(X, y, nSamples, nSelected, nFeatures, rng)
				return err
			})
		}
	})
	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
	}

	f.members = members
	f.nFeatures = nFeatures

	log.GetLoggerWithName("ensemble.forest").Debug("Random forest fitted",
		"n_trees", f.nTrees,
		log.SamplesKey, len(X),
		log.FeaturesKey, nFeatures,
		log.RandomSeedKey, seed,
	)
	return nil
}

func (f *RandomForest) fitMember(X [][]float64, y []float64, nSamples, nSelected, nFeatures int, rng *rand.Rand) (Member, error) {
	features := rng.Perm(nFeatures)[:nSelected]
	sort.Ints(features)

	Xs := make([][]float64, nSamples)
	ys := make([]float64, nSamples)
	for i := range Xs {
		r := rng.Intn(len(X))
		Xs[i] = project(X[r], features)
		ys[i] = y[r]
	}

	t := tree.NewDecisionTree(
		tree.WithMaxDepth(f.maxDepth),
		tree.WithMinSamplesSplit(f.minSamplesSplit),
		tree.WithMinSamplesLeaf(1),
	)
	if err := t.Fit(Xs, ys); err != nil {
		return Member{}, err
	}
	return Member{Tree: t, Features: features}, nil
}

func project(x []float64, features []int) []float64 {
	out := make([]float64, len(features))
	for i, f := range features {
		out[i] = x[f]
	}
	return out
}

// PredictOne returns the majority vote of the trees for x. Ties go to the vote
// of the earliest tree among the tied labels.
func (f *RandomForest) PredictOne(x []float64) float64 {
	if len(f.members) == 0 {
		return math.NaN()
	}
	votes := make([]float64, len(f.members))
	buf := make([]float64, 0, len(x))
	for i, m := range f.members {
		buf = buf[:0]
		for _, j := range m.Features {
			buf = append(buf, x[j])
		}
		votes[i] = m.Tree.PredictOne(buf)
	}
	return tree.MostCommon(votes)
}

// Predict returns one prediction per row of X.
func (f *RandomForest) Predict(X [][]float64) ([]float64, error) {
	if len(f.members) == 0 {
		return nil, errors.NewNotFittedError("RandomForest", "Predict")
	}
	if err := model.ValidateRows("RandomForest.Predict", X, f.nFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = f.PredictOne(row)
	}
	return out, nil
}

// IsFitted reports whether the forest has been trained.
func (f *RandomForest) IsFitted() bool { return len(f.members) > 0 }

// Members returns the trained trees and their feature subsets.
func (f *RandomForest) Members() []Member { return f.members }

// NFeatures returns the feature width seen during Fit.
func (f *RandomForest) NFeatures() int { return f.nFeatures }

// RandomState returns the configured seed, negative when unset.
func (f *RandomForest) RandomState() int64 { return f.randomState }

// GetParams returns the hyperparameters.
func (f *RandomForest) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_trees":           f.nTrees,
		"max_depth":         f.maxDepth,
		"min_samples_split": f.minSamplesSplit,
		"sample_ratio":      f.sampleRatio,
		"feature_ratio":     f.featureRatio,
		"random_state":      f.randomState,
	}
}

type forestJSON struct {
	NTrees          int      `json:"n_trees"`
	MaxDepth        int      `json:"max_depth"`
	MinSamplesSplit int      `json:"min_samples_split"`
	SampleRatio     float64  `json:"sample_ratio"`
	FeatureRatio    float64  `json:"feature_ratio"`
	RandomState     int64    `json:"random_state"`
	NFeatures       int      `json:"n_features"`
	Members         []Member `json:"members"`
}

// MarshalJSON encodes the hyperparameters and every member tree.
func (f *RandomForest) MarshalJSON() ([]byte, error) {
	return json.Marshal(forestJSON{
		NTrees:          f.nTrees,
		MaxDepth:        f.maxDepth,
		MinSamplesSplit: f.minSamplesSplit,
		SampleRatio:     f.sampleRatio,
		FeatureRatio:    f.featureRatio,
		RandomState:     f.randomState,
		NFeatures:       f.nFeatures,
		Members:         f.members,
	})
}

// UnmarshalJSON decodes a forest written by MarshalJSON.
func (f *RandomForest) UnmarshalJSON(data []byte) error {
	var fj forestJSON
	if err := json.Unmarshal(data, &fj); err != nil {
		return errors.Wrap(err, "decode random forest")
	}
	for i, m := range fj.Members {
		if m.Tree == nil || !m.Tree.IsFitted() {
			return errors.NewValueError("RandomForest.UnmarshalJSON", "member without a fitted tree")
		}
		if m.Tree.NFeatures() != len(m.Features) {
			return errors.NewDimensionError("RandomForest.UnmarshalJSON", len(m.Features), m.Tree.NFeatures(), 1)
		}
		for _, j := range m.Features {
			if j < 0 || j >= fj.NFeatures {
				return errors.NewValueError("RandomForest.UnmarshalJSON",
					fmt.Sprintf("feature index %d out of range in member %d", j, i))
			}
		}
	}
	*f = RandomForest{
		nTrees:          fj.NTrees,
		maxDepth:        fj.MaxDepth,
		minSamplesSplit: fj.MinSamplesSplit,
		sampleRatio:     fj.SampleRatio,
		featureRatio:    fj.FeatureRatio,
		randomState:     fj.RandomState,
		members:         fj.Members,
		nFeatures:       fj.NFeatures,
	}
	return nil
}
