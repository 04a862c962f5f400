package model

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/predictive/pkg/errors"
)

// ValidateDataset は学習データ (X, y) の形状を検証し、特徴量数を返す
//
// X が空、len(X) != len(y)、y に NaN/±Inf がある、行ごとに特徴量数が異なる場合は
// InvalidDatasetError を返す。
// 特徴量数0は許容する（木は単一の葉になる）。
func ValidateDataset(op string, X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, errors.NewInvalidDatasetError(op, "X is empty")
	}
	if len(X) != len(y) {
		return 0, errors.NewInvalidDatasetError(op,
			fmt.Sprintf("X has %d rows but y has %d labels", len(X), len(y)))
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, errors.NewInvalidDatasetError(op,
				fmt.Sprintf("label %d is not finite (%v)", i, v))
		}
	}
	nFeatures := len(X[0])
	for i, row := range X {
		if len(row) != nFeatures {
			return 0, errors.NewInvalidDatasetError(op,
				fmt.Sprintf("row %d has %d features, expected %d", i, len(row), nFeatures))
		}
	}
	return nFeatures, nil
}

// ValidateRows は予測入力の各行が学習時の特徴量数と一致するかを検証する
func ValidateRows(op string, X [][]float64, nFeatures int) error {
	for _, row := range X {
		if len(row) != nFeatures {
			return errors.NewDimensionError(op, nFeatures, len(row), 1)
		}
	}
	return nil
}
