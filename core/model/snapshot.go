package model

import (
	"encoding/json"
	"time"

	"github.com/YuminosukeSato/predictive/pkg/errors"
)

// SnapshotVersion は現在のスナップショット形式のバージョン
const SnapshotVersion = "1"

// Snapshot は学習済みモデルを永続化するための封筒（シリアライゼーション用）
type Snapshot struct {
	// ModelType はモデルの種類
	ModelType Kind `json:"model_type"`

	// Version はスナップショット形式のバージョン（互換性チェック用）
	Version string `json:"version"`

	// ID はレジストリ上のモデルID
	ID string `json:"id"`

	// TrainedAt は学習が完了した時刻
	TrainedAt time.Time `json:"trained_at"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// NFeatures は学習時の特徴量数
	NFeatures int `json:"n_features"`

	// Payload はモデル本体のJSON
	Payload json.RawMessage `json:"payload"`
}

// ToJSON はSnapshotをJSON形式にシリアライズ
func (s *Snapshot) ToJSON() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "marshal snapshot")
	}
	return data, nil
}

// FromJSON はJSON形式からSnapshotをデシリアライズ
func (s *Snapshot) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, s); err != nil {
		return errors.Wrap(err, "unmarshal snapshot")
	}
	return nil
}

// Validate はSnapshotの妥当性を検証
func (s *Snapshot) Validate() error {
	if s.ModelType == "" {
		return errors.NewValidationError("model_type", "is required", s.ModelType)
	}
	if !s.ModelType.Valid() {
		return errors.NewValidationError("model_type", "unknown model type", s.ModelType)
	}
	if s.Version == "" {
		return errors.NewValidationError("version", "is required", s.Version)
	}
	if s.Version != SnapshotVersion {
		return errors.NewValidationError("version", "unsupported snapshot version", s.Version)
	}
	if len(s.Payload) == 0 || string(s.Payload) == "null" {
		return errors.NewValidationError("payload", "is required", nil)
	}
	if s.NFeatures < 0 {
		return errors.NewValidationError("n_features", "must be non-negative", s.NFeatures)
	}
	return nil
}

// Clone はSnapshotのディープコピーを作成
func (s *Snapshot) Clone() *Snapshot {
	clone := &Snapshot{
		ModelType:       s.ModelType,
		Version:         s.Version,
		ID:              s.ID,
		TrainedAt:       s.TrainedAt,
		NFeatures:       s.NFeatures,
		Hyperparameters: make(map[string]interface{}, len(s.Hyperparameters)),
		Payload:         append(json.RawMessage(nil), s.Payload...),
	}
	for k, v := range s.Hyperparameters {
		clone.Hyperparameters[k] = v
	}
	return clone
}
