// Package preprocessing はモデルに渡す前のデータ変換を提供する
package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/predictive/pkg/errors"
)

// LabelEncoder は文字列ラベルを 0, 1, 2, ... の数値コードに変換する
// コードは学習時に最初に現れた順に割り当てられる
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// NewLabelEncoder は新しいLabelEncoderを作成する
//
// 使用例:
//
//	enc := preprocessing.NewLabelEncoder()
//	y, err := enc.FitTransform([]string{"cat", "dog", "cat"})
//	// y == []float64{0, 1, 0}
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit はラベル一覧からクラスを学習する
//
// パラメータ:
//   - labels: 学習に使うラベル（空は不可）
//
// 戻り値:
//   - error: labels が空の場合 ValueError
func (e *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.NewValueError("LabelEncoder.Fit", "empty labels")
	}
	classes := make([]string, 0)
	index := make(map[string]int)
	for _, l := range labels {
		if _, ok := index[l]; ok {
			continue
		}
		index[l] = len(classes)
		classes = append(classes, l)
	}
	e.classes = classes
	e.index = index
	return nil
}

// Transform はラベルを数値コードに変換する。未知のラベルは ValueError。
func (e *LabelEncoder) Transform(labels []string) ([]float64, error) {
	if e.index == nil {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}
	out := make([]float64, len(labels))
	for i, l := range labels {
		code, ok := e.index[l]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform", fmt.Sprintf("unknown label %q", l))
		}
		out[i] = float64(code)
	}
	return out, nil
}

// FitTransform はFitとTransformを続けて行う
func (e *LabelEncoder) FitTransform(labels []string) ([]float64, error) {
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e.Transform(labels)
}

// InverseTransform は数値コードをラベルに戻す
//
// 整数でないコードや範囲外のコードは ValueError。
func (e *LabelEncoder) InverseTransform(codes []float64) ([]string, error) {
	if e.index == nil {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		if c != math.Trunc(c) || c < 0 || int(c) >= len(e.classes) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform", fmt.Sprintf("unknown code %v", c))
		}
		out[i] = e.classes[int(c)]
	}
	return out, nil
}

// Classes は学習済みクラスをコード順に返す
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}
