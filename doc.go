// Package predictive provides classic supervised-learning models implemented from
// scratch in Go, together with a model registry for training, prediction, evaluation
// and persistence.
//
// Predictive is designed to be embedded in backend services: every model is plain
// Go over [][]float64, training and prediction never mutate their inputs, and the
// registry is safe for concurrent use.
//
// # Features
//
// - CART decision trees (Gini for classification, variance for regression)
// - Random forests with bootstrap rows and per-tree feature subsets
// - Least-squares gradient boosting
// - Linear regression via the normal equations
// - Snapshot persistence (JSON + snappy) to memory, LevelDB or an LRU-cached store
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/predictive/engine"
//	    "github.com/YuminosukeSato/predictive/sklearn/tree"
//	)
//
//	func main() {
//	    eng := engine.New()
//
//	    X := [][]float64{{0}, {1}, {2}, {3}}
//	    y := []float64{0, 0, 1, 1}
//
//	    id, err := eng.TrainDecisionTree(X, y, tree.WithMaxDepth(2))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    pred, err := eng.Predict(id, [][]float64{{0}, {3}})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(pred) // [0 1]
//	}
//
// # Packages
//
//   - engine: model registry (train, predict, evaluate, save, load)
//   - sklearn/tree: decision tree builder and split search
//   - sklearn/ensemble: RandomForest and GradientBoosting
//   - sklearn/linear_model: LinearRegression
//   - metrics: Accuracy, MSE, RMSE, MAE, R², residual plots
//   - preprocessing: LabelEncoder for string labels
//   - store: Memory, LevelDB and Cached snapshot stores
//   - core/matrix: transpose, multiply and Gauss-Jordan inverse
//   - core/model: model kinds, dataset validation, snapshot codec
//   - core/parallel: parallel processing utilities
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//
// # Performance
//
// Forest members are trained concurrently and batch predictions with more than
// 1000 rows are split across all CPU cores.
package predictive
