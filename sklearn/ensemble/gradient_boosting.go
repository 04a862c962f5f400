package ensemble

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/predictive/core/model"
	"github.com/YuminosukeSato/predictive/pkg/errors"
	"github.com/YuminosukeSato/predictive/pkg/log"
	"github.com/YuminosukeSato/predictive/sklearn/tree"
)

// GradientBoosting is a least-squares boosting regressor. Each round fits a
// regression tree to the residuals of the current ensemble.
type GradientBoosting struct {
	nEstimators  int
	learningRate float64
	maxDepth     int

	initialPrediction float64
	trees             []*tree.DecisionTree
	stagedLoss        []float64
	nFeatures         int
	fitted            bool
}

// BoostingOption configures a GradientBoosting model.
type BoostingOption func(*GradientBoosting)

// WithNEstimators sets the number of boosting rounds. Zero gives a constant model.
func WithNEstimators(n int) BoostingOption {
	return func(g *GradientBoosting) { g.nEstimators = n }
}

// WithLearningRate sets the shrinkage applied to each tree.
func WithLearningRate(lr float64) BoostingOption {
	return func(g *GradientBoosting) { g.learningRate = lr }
}

// WithBoostingMaxDepth sets the maximum depth of each tree.
func WithBoostingMaxDepth(depth int) BoostingOption {
	return func(g *GradientBoosting) { g.maxDepth = depth }
}

// NewGradientBoosting creates an unfitted model. Defaults: 10 estimators,
// learning rate 0.1, max depth 3.
func NewGradientBoosting(opts ...BoostingOption) *GradientBoosting {
	g := &GradientBoosting{
		nEstimators:  10,
		learningRate: 0.1,
		maxDepth:     3,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GradientBoosting) validateParams() error {
	if g.nEstimators < 0 {
		return errors.NewValidationError("n_estimators", "must be non-negative", g.nEstimators)
	}
	if !(g.learningRate > 0) || math.IsInf(g.learningRate, 0) {
		return errors.NewValidationError("learning_rate", "must be positive and finite", g.learningRate)
	}
	if g.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative", g.maxDepth)
	}
	return nil
}

// Fit trains the ensemble on (X, y).
func (g *GradientBoosting) Fit(X [][]float64, y []float64) error {
	if err := g.validateParams(); err != nil {
		return err
	}
	nFeatures, err := model.ValidateDataset("GradientBoosting.Fit", X, y)
	if err != nil {
		return err
	}

	initial := stat.Mean(y, nil)
	if err := errors.CheckScalar("GradientBoosting.initial_prediction", initial, 0); err != nil {
		return err
	}

	residuals := make([]float64, len(y))
	for i, v := range y {
		residuals[i] = v - initial
	}

	logger := log.GetLoggerWithName("ensemble.boosting")
	trees := make([]*tree.DecisionTree, 0, g.nEstimators)
	losses := make([]float64, 0, g.nEstimators)
	for m := 0; m < g.nEstimators; m++ {
		t := tree.NewDecisionTree(
			tree.WithCriterion(tree.MSE),
			tree.WithMaxDepth(g.maxDepth),
			tree.WithMinSamplesSplit(2),
			tree.WithMinSamplesLeaf(1),
		)
		if err := t.Fit(X, residuals); err != nil {
			return errors.Wrapf(err, "boosting round %d", m)
		}
		trees = append(trees, t)

		var sse float64
		for i, row := range X {
			residuals[i] -= g.learningRate * t.PredictOne(row)
			sse += residuals[i] * residuals[i]
		}
		if err := errors.CheckNumericalStability("GradientBoosting.residual_update", residuals, m); err != nil {
			return err
		}
		loss := sse / float64(len(residuals))
		losses = append(losses, loss)

		logger.Debug("Boosting round completed",
			log.IterationKey, m,
			log.LossKey, loss,
		)
	}

	g.initialPrediction = initial
	g.trees = trees
	g.stagedLoss = losses
	g.nFeatures = nFeatures
	g.fitted = true
	return nil
}

// PredictOne returns initialPrediction + learningRate * Σ tree(x).
func (g *GradientBoosting) PredictOne(x []float64) float64 {
	if !g.fitted {
		return math.NaN()
	}
	var sum float64
	for _, t := range g.trees {
		sum += t.PredictOne(x)
	}
	return g.initialPrediction + g.learningRate*sum
}

// Predict returns one prediction per row of X.
func (g *GradientBoosting) Predict(X [][]float64) ([]float64, error) {
	if !g.fitted {
		return nil, errors.NewNotFittedError("GradientBoosting", "Predict")
	}
	if err := model.ValidateRows("GradientBoosting.Predict", X, g.nFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = g.PredictOne(row)
	}
	return out, nil
}

// IsFitted reports whether Fit has completed.
func (g *GradientBoosting) IsFitted() bool { return g.fitted }

// InitialPrediction returns the mean of the training targets.
func (g *GradientBoosting) InitialPrediction() float64 { return g.initialPrediction }

// Trees returns the fitted trees in the order they were added.
func (g *GradientBoosting) Trees() []*tree.DecisionTree { return g.trees }

// LearningRate returns the shrinkage factor.
func (g *GradientBoosting) LearningRate() float64 { return g.learningRate }

// NFeatures returns the feature width seen during Fit.
func (g *GradientBoosting) NFeatures() int { return g.nFeatures }

// StagedLoss returns the training MSE after each boosting round.
func (g *GradientBoosting) StagedLoss() []float64 {
	return append([]float64(nil), g.stagedLoss...)
}

// GetParams returns the hyperparameters.
func (g *GradientBoosting) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":  g.nEstimators,
		"learning_rate": g.learningRate,
		"max_depth":     g.maxDepth,
	}
}

type boostingJSON struct {
	NEstimators       int                  `json:"n_estimators"`
	LearningRate      float64              `json:"learning_rate"`
	MaxDepth          int                  `json:"max_depth"`
	InitialPrediction float64              `json:"initial_prediction"`
	NFeatures         int                  `json:"n_features"`
	Trees             []*tree.DecisionTree `json:"trees"`
	StagedLoss        []float64            `json:"staged_loss,omitempty"`
}

// MarshalJSON encodes the hyperparameters, the initial prediction and the trees.
func (g *GradientBoosting) MarshalJSON() ([]byte, error) {
	if !g.fitted {
		return nil, errors.NewNotFittedError("GradientBoosting", "MarshalJSON")
	}
	return json.Marshal(boostingJSON{
		NEstimators:       g.nEstimators,
		LearningRate:      g.learningRate,
		MaxDepth:          g.maxDepth,
		InitialPrediction: g.initialPrediction,
		NFeatures:         g.nFeatures,
		Trees:             g.trees,
		StagedLoss:        g.stagedLoss,
	})
}

// UnmarshalJSON decodes a model written by MarshalJSON.
func (g *GradientBoosting) UnmarshalJSON(data []byte) error {
	var bj boostingJSON
	if err := json.Unmarshal(data, &bj); err != nil {
		return errors.Wrap(err, "decode gradient boosting")
	}
	for _, t := range bj.Trees {
		if t == nil || !t.IsFitted() {
			return errors.NewValueError("GradientBoosting.UnmarshalJSON", "unfitted tree")
		}
		if t.NFeatures() != bj.NFeatures {
			return errors.NewDimensionError("GradientBoosting.UnmarshalJSON", bj.NFeatures, t.NFeatures(), 1)
		}
	}
	*g = GradientBoosting{
		nEstimators:       bj.NEstimators,
		learningRate:      bj.LearningRate,
		maxDepth:          bj.MaxDepth,
		initialPrediction: bj.InitialPrediction,
		trees:             bj.Trees,
		stagedLoss:        bj.StagedLoss,
		nFeatures:         bj.NFeatures,
		fitted:            true,
	}
	return g.validateParams()
}
