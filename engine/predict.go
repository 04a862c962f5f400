package engine

import (
	"fmt"

	"github.com/YuminosukeSato/predictive/core/model"
	"github.com/YuminosukeSato/predictive/core/parallel"
	"github.com/YuminosukeSato/predictive/pkg/errors"
	"github.com/YuminosukeSato/predictive/sklearn/ensemble"
	"github.com/YuminosukeSato/predictive/sklearn/linear_model"
	"github.com/YuminosukeSato/predictive/sklearn/tree"
)

// この行数を超えるバッチ予測はワーカーに分割する
const predictParallelThreshold = 1000

// Predict はidのモデルでXの各行を予測する。出力の順序は入力と同じ。
func (e *Engine) Predict(id string, X [][]float64) ([]float64, error) {
	rec, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	return predictRows(rec, X)
}

func predictRows(rec *Record, X [][]float64) ([]float64, error) {
	p, err := predictor(rec.Model)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateRows("engine.Predict", X, rec.NFeatures); err != nil {
		return nil, err
	}

	out := make([]float64, len(X))
	parallel.ParallelizeWithThreshold(len(X), predictParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = p.PredictOne(X[i])
		}
	})
	return out, nil
}

// predictor はペイロードの型に応じた1行予測器を返す
func predictor(m interface{}) (model.RowPredictor, error) {
	var fitted bool
	switch m := m.(type) {
	case *tree.DecisionTree:
		fitted = m.IsFitted()
	case *ensemble.RandomForest:
		fitted = m.IsFitted()
	case *ensemble.GradientBoosting:
		fitted = m.IsFitted()
	case *linear_model.LinearRegression:
		fitted = m.IsFitted()
	default:
		return nil, errors.NewUnsupportedOperationError("engine.Predict", fmt.Sprintf("%T", m))
	}
	if !fitted {
		return nil, errors.NewNotFittedError(fmt.Sprintf("%T", m), "Predict")
	}
	return m.(model.RowPredictor), nil
}
