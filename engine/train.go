package engine

import (
	"time"

	"github.com/YuminosukeSato/predictive/core/model"
	"github.com/YuminosukeSato/predictive/pkg/errors"
	"github.com/YuminosukeSato/predictive/pkg/log"
	"github.com/YuminosukeSato/predictive/sklearn/ensemble"
	"github.com/YuminosukeSato/predictive/sklearn/linear_model"
	"github.com/YuminosukeSato/predictive/sklearn/tree"
)

type trainable interface {
	Fit(X [][]float64, y []float64) error
	model.ParameterGetter
}

// TrainDecisionTree は決定木を学習し、登録したidを返す
func (e *Engine) TrainDecisionTree(X [][]float64, y []float64, opts ...tree.Option) (string, error) {
	return e.train(model.DecisionTree, X, y, tree.NewDecisionTree(opts...))
}

// TrainRandomForest はランダムフォレストを学習し、登録したidを返す
//
// WithRandomState が指定されていない場合はエンジンの乱数からシードを割り当てる。
func (e *Engine) TrainRandomForest(X [][]float64, y []float64, opts ...ensemble.ForestOption) (string, error) {
	forest := ensemble.NewRandomForest(opts...)
	if forest.RandomState() < 0 {
		seeded := append(append([]ensemble.ForestOption(nil), opts...), ensemble.WithRandomState(e.nextSeed()))
		forest = ensemble.NewRandomForest(seeded...)
	}
	return e.train(model.RandomForest, X, y, forest)
}

// TrainGradientBoosting は勾配ブースティング回帰を学習し、登録したidを返す
func (e *Engine) TrainGradientBoosting(X [][]float64, y []float64, opts ...ensemble.BoostingOption) (string, error) {
	return e.train(model.GradientBoosting, X, y, ensemble.NewGradientBoosting(opts...))
}

// TrainLinearRegression は線形回帰を学習し、登録したidを返す
func (e *Engine) TrainLinearRegression(X [][]float64, y []float64) (string, error) {
	return e.train(model.LinearRegression, X, y, linear_model.NewLinearRegression())
}

// train はデータを検証して m を学習し、新しいidで登録する。失敗時は何も登録しない。
func (e *Engine) train(kind model.Kind, X [][]float64, y []float64, m trainable) (string, error) {
	logger := e.logger.With(
		log.ModelNameKey, kind.String(),
		log.OperationKey, log.OperationFit,
	)

	nFeatures, err := model.ValidateDataset("engine.Train", X, y)
	if err != nil {
		logger.Error("Training rejected", err)
		return "", err
	}

	start := time.Now()
	if err := errors.SafeExecute("engine.Train."+kind.String(), func() error {
		return m.Fit(X, y)
	}); err != nil {
		logger.Error("Training failed", err)
		return "", err
	}

	rec := &Record{
		ID:        e.newID(kind),
		Kind:      kind,
		Params:    m.GetParams(),
		TrainedAt: e.now(),
		NFeatures: nFeatures,
		Model:     m,
	}
	if err := e.insert(rec); err != nil {
		logger.Error("Registration failed", err)
		return "", err
	}

	logger.Info("Model trained",
		log.EstimatorIDKey, rec.ID,
		log.SamplesKey, len(X),
		log.FeaturesKey, nFeatures,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return rec.ID, nil
}
