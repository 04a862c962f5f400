package engine

import (
	"encoding/json"

	"github.com/YuminosukeSato/predictive/core/model"
	"github.com/YuminosukeSato/predictive/pkg/errors"
	"github.com/YuminosukeSato/predictive/pkg/log"
	"github.com/YuminosukeSato/predictive/sklearn/ensemble"
	"github.com/YuminosukeSato/predictive/sklearn/linear_model"
	"github.com/YuminosukeSato/predictive/sklearn/tree"
)

// SaveModel はidのモデルをスナップショットとしてストアのキー id に書き込む
//
// 未知のidは ModelNotFoundError、ストア未設定は UnsupportedOperationError。
// 特徴量に ±Inf を含むデータで学習した木は閾値がJSONで表現できないため保存できない。
func (e *Engine) SaveModel(id string) error {
	logger := e.logger.With(log.EstimatorIDKey, id, log.OperationKey, log.OperationSave)
	snap, err := e.snapshot(id)
	if err != nil {
		logger.Error("Save failed", err)
		return err
	}
	if e.store == nil {
		return errors.NewUnsupportedOperationError("engine.SaveModel", "no store configured")
	}
	data, err := model.EncodeSnapshot(snap)
	if err != nil {
		logger.Error("Save failed", err)
		return err
	}
	if err := e.store.Set(id, data); err != nil {
		err = errors.Wrapf(err, "store model %s", id)
		logger.Error("Save failed", err)
		return err
	}

	logger.Info("Model saved",
		log.ModelNameKey, snap.ModelType.String(),
		log.StoreKeyKey, id,
		log.StoreBytesKey, len(data),
	)
	return nil
}

// LoadModel はストアのキー id からスナップショットを読み込み、同じidで登録する
//
// 同じidのモデルが既に登録されている場合は置き換える。
func (e *Engine) LoadModel(id string) (*Record, error) {
	logger := e.logger.With(log.EstimatorIDKey, id, log.OperationKey, log.OperationLoad)
	if e.store == nil {
		return nil, errors.NewUnsupportedOperationError("engine.LoadModel", "no store configured")
	}

	data, ok, err := e.store.Get(id)
	if err != nil {
		err = errors.Wrapf(err, "read model %s", id)
		logger.Error("Load failed", err)
		return nil, err
	}
	if !ok {
		return nil, errors.NewModelNotFoundError(id)
	}
	snap, err := model.DecodeSnapshot(data)
	if err != nil {
		logger.Error("Load failed", err)
		return nil, err
	}
	rec, err := errors.SafeCall("engine.LoadModel", func() (*Record, error) {
		return recordFromSnapshot(id, snap)
	})
	if err != nil {
		logger.Error("Load failed", err)
		return nil, err
	}
	e.replace(rec)

	logger.Info("Model loaded",
		log.ModelNameKey, rec.Kind.String(),
		log.StoreKeyKey, id,
		log.StoreBytesKey, len(data),
	)
	return rec, nil
}

// ExportModel はidのモデルをスナップショットファイルとして書き出す
func (e *Engine) ExportModel(id, filename string) error {
	snap, err := e.snapshot(id)
	if err != nil {
		return err
	}
	return model.SaveSnapshotFile(snap, filename)
}

// ImportModel はExportModelで書き出したファイルを読み込み、スナップショットのidで登録する
func (e *Engine) ImportModel(filename string) (*Record, error) {
	snap, err := model.LoadSnapshotFile(filename)
	if err != nil {
		return nil, err
	}
	if snap.ID == "" {
		return nil, errors.NewValidationError("id", "is required", snap.ID)
	}
	rec, err := recordFromSnapshot(snap.ID, snap)
	if err != nil {
		return nil, err
	}
	e.replace(rec)
	return rec, nil
}

func (e *Engine) snapshot(id string) (*model.Snapshot, error) {
	rec, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rec.Model)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s payload", rec.Kind)
	}
	return &model.Snapshot{
		ModelType:       rec.Kind,
		Version:         model.SnapshotVersion,
		ID:              rec.ID,
		TrainedAt:       rec.TrainedAt,
		Hyperparameters: rec.Params,
		NFeatures:       rec.NFeatures,
		Payload:         payload,
	}, nil
}

func recordFromSnapshot(id string, snap *model.Snapshot) (*Record, error) {
	var m interface {
		model.RowPredictor
		model.ParameterGetter
	}
	switch snap.ModelType {
	case model.DecisionTree:
		m = &tree.DecisionTree{}
	case model.RandomForest:
		m = &ensemble.RandomForest{}
	case model.GradientBoosting:
		m = &ensemble.GradientBoosting{}
	case model.LinearRegression:
		m = &linear_model.LinearRegression{}
	default:
		return nil, errors.NewUnsupportedOperationError("engine.LoadModel", snap.ModelType.String())
	}
	if err := json.Unmarshal(snap.Payload, m); err != nil {
		return nil, errors.Wrapf(err, "decode %s payload", snap.ModelType)
	}
	if _, err := predictor(m); err != nil {
		return nil, err
	}
	if m.NFeatures() != snap.NFeatures {
		return nil, errors.NewDimensionError("engine.LoadModel", snap.NFeatures, m.NFeatures(), 1)
	}

	params := snap.Hyperparameters
	if params == nil {
		params = m.GetParams()
	}
	return &Record{
		ID:        id,
		Kind:      snap.ModelType,
		Params:    params,
		TrainedAt: snap.TrainedAt,
		NFeatures: snap.NFeatures,
		Model:     m,
	}, nil
}
