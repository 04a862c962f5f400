package model

// Kind は学習済みモデルの種類を表す
type Kind string

const (
	DecisionTree     Kind = "decision_tree"
	RandomForest     Kind = "random_forest"
	GradientBoosting Kind = "gradient_boosting"
	LinearRegression Kind = "linear_regression"
)

// Kinds は対応している全てのモデル種別を返す
func Kinds() []Kind {
	return []Kind{DecisionTree, RandomForest, GradientBoosting, LinearRegression}
}

// Valid はKindが既知の種別かどうかを返す
func (k Kind) Valid() bool {
	switch k {
	case DecisionTree, RandomForest, GradientBoosting, LinearRegression:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// ParameterGetter はハイパーパラメータを取得できるモデルのインターフェース
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// RowPredictor は1行ずつ予測できる学習済みモデルのインターフェース
type RowPredictor interface {
	// PredictOne は1つの特徴ベクトルに対する予測値を返す
	PredictOne(x []float64) float64
	// NFeatures は学習時の特徴量数を返す
	NFeatures() int
}
