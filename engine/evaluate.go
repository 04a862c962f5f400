package engine

import (
	"io"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/predictive/core/model"
	"github.com/YuminosukeSato/predictive/metrics"
	"github.com/YuminosukeSato/predictive/pkg/errors"
	"github.com/YuminosukeSato/predictive/pkg/log"
)

// MetricFunc は正解と予測から評価値を計算する
type MetricFunc func(yTrue, yPred *mat.VecDense) (float64, error)

var metricFuncs = map[string]MetricFunc{
	"accuracy":           metrics.Accuracy,
	"mse":                metrics.MSE,
	"rmse":               metrics.RMSE,
	"mae":                metrics.MAE,
	"r2":                 metrics.R2Score,
	"mape":               metrics.MAPE,
	"explained_variance": metrics.ExplainedVarianceScore,
}

// Metrics はEvaluateが受け付ける評価指標名をアルファベット順に返す
func Metrics() []string {
	names := make([]string, 0, len(metricFuncs))
	for name := range metricFuncs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Evaluate はidのモデルで X を予測し、y に対する評価指標 metric を返す
//
// 未知のidは ModelNotFoundError、未知の指標名は UnsupportedOperationError。
func (e *Engine) Evaluate(id string, X [][]float64, y []float64, metric string) (float64, error) {
	yTrue, yPred, err := e.predictAgainst("engine.Evaluate", id, X, y)
	if err != nil {
		return 0, err
	}
	fn, ok := metricFuncs[metric]
	if !ok {
		return 0, errors.NewUnsupportedOperationError("engine.Evaluate", metric)
	}

	score, err := fn(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	e.logger.Debug("Model evaluated",
		log.EstimatorIDKey, id,
		log.OperationKey, log.OperationEvaluate,
		log.MetricKey, metric,
		log.ScoreKey, score,
	)
	return score, nil
}

// PlotResiduals はidのモデルの残差プロットを format 形式で w に書き出す
func (e *Engine) PlotResiduals(id string, X [][]float64, y []float64, w io.Writer, format string) error {
	yTrue, yPred, err := e.predictAgainst("engine.PlotResiduals", id, X, y)
	if err != nil {
		return err
	}
	return metrics.PlotResiduals(yTrue, yPred, w, format)
}

func (e *Engine) predictAgainst(op, id string, X [][]float64, y []float64) (*mat.VecDense, *mat.VecDense, error) {
	rec, err := e.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	if _, err := model.ValidateDataset(op, X, y); err != nil {
		return nil, nil, err
	}
	pred, err := predictRows(rec, X)
	if err != nil {
		return nil, nil, err
	}
	yTrue := mat.NewVecDense(len(y), append([]float64(nil), y...))
	return yTrue, mat.NewVecDense(len(pred), pred), nil
}
