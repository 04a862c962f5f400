// Package linear_model provides ordinary least squares regression solved in
// closed form.
package linear_model

import (
	"encoding/json"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/predictive/core/matrix"
	"github.com/YuminosukeSato/predictive/core/model"
	"github.com/YuminosukeSato/predictive/core/parallel"
	"github.com/YuminosukeSato/predictive/metrics"
	"github.com/YuminosukeSato/predictive/pkg/errors"
)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

// LinearRegression は正規方程式 θ = (XᵀX)⁻¹Xᵀy で学習する線形回帰モデル
//
// θ[0] は切片、θ[1:] は各特徴量の係数。
type LinearRegression struct {
	theta     []float64
	nFeatures int
}

// NewLinearRegression は新しいLinearRegressionモデルを作成
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Fit はモデルを訓練データで学習させる
//
// XᵀX が特異な場合（共線な特徴量、列数より少ない異なる行など）は SingularMatrixError を返す。
func (lr *LinearRegression) Fit(X [][]float64, y []float64) error {
	nFeatures, err := model.ValidateDataset("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}

	// 切片項のために X に 1 の列を追加
	augmented := make([][]float64, len(X))
	parallel.ParallelizeWithThreshold(len(X), parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := make([]float64, nFeatures+1)
			row[0] = 1
			copy(row[1:], X[i])
			augmented[i] = row
		}
	})

	XT := matrix.Transpose(augmented)
	XTX, err := matrix.Multiply(XT, augmented)
	if err != nil {
		return err
	}
	XTXInv, err := matrix.Inverse(XTX)
	if err != nil {
		return errors.Wrap(err, "LinearRegression.Fit")
	}
	XTy, err := matrix.MatVec(XT, y)
	if err != nil {
		return err
	}
	theta, err := matrix.MatVec(XTXInv, XTy)
	if err != nil {
		return err
	}
	if err := errors.CheckNumericalStability("LinearRegression.Fit", theta, 0); err != nil {
		return err
	}

	lr.theta = theta
	lr.nFeatures = nFeatures
	return nil
}

// PredictOne は θ · [1, x...] を返す
func (lr *LinearRegression) PredictOne(x []float64) float64 {
	return lr.theta[0] + floats.Dot(lr.theta[1:], x)
}

// Predict は各行に対する予測値を返す
func (lr *LinearRegression) Predict(X [][]float64) ([]float64, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "Predict")
	}
	if err := model.ValidateRows("LinearRegression.Predict", X, lr.nFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = lr.PredictOne(row)
	}
	return out, nil
}

// Score は決定係数 R² を返す
func (lr *LinearRegression) Score(X [][]float64, y []float64) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	if len(y) != len(pred) {
		return 0, errors.NewDimensionError("LinearRegression.Score", len(pred), len(y), 0)
	}
	if len(y) == 0 {
		return 0, errors.NewValueError("LinearRegression.Score", "empty input")
	}
	return metrics.R2Score(mat.NewVecDense(len(y), append([]float64(nil), y...)), mat.NewVecDense(len(pred), pred))
}

// IsFitted はモデルが学習済みかどうかを返す
func (lr *LinearRegression) IsFitted() bool { return lr.theta != nil }

// Theta は切片を先頭に含むパラメータベクトルのコピーを返す
func (lr *LinearRegression) Theta() []float64 { return append([]float64(nil), lr.theta...) }

// Coef は特徴量の係数を返す
func (lr *LinearRegression) Coef() []float64 {
	if lr.theta == nil {
		return nil
	}
	return append([]float64(nil), lr.theta[1:]...)
}

// Intercept は切片を返す
func (lr *LinearRegression) Intercept() float64 {
	if lr.theta == nil {
		return 0
	}
	return lr.theta[0]
}

// NFeatures は学習時の特徴量数を返す
func (lr *LinearRegression) NFeatures() int { return lr.nFeatures }

// GetParams はハイパーパラメータを返す（正規方程式には調整項目がない）
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{"fit_intercept": true}
}

type linearJSON struct {
	Theta     []float64 `json:"theta"`
	NFeatures int       `json:"n_features"`
}

// MarshalJSON はθと特徴量数をJSONに変換する
func (lr *LinearRegression) MarshalJSON() ([]byte, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "MarshalJSON")
	}
	return json.Marshal(linearJSON{Theta: lr.theta, NFeatures: lr.nFeatures})
}

// UnmarshalJSON はMarshalJSONの出力から復元する
func (lr *LinearRegression) UnmarshalJSON(data []byte) error {
	var lj linearJSON
	if err := json.Unmarshal(data, &lj); err != nil {
		return errors.Wrap(err, "decode linear regression")
	}
	if len(lj.Theta) != lj.NFeatures+1 {
		return errors.NewDimensionError("LinearRegression.UnmarshalJSON", lj.NFeatures+1, len(lj.Theta), 1)
	}
	lr.theta = lj.Theta
	lr.nFeatures = lj.NFeatures
	return nil
}
