// Package engine は学習済みモデルのレジストリと、学習・予測・評価・永続化の入口を提供する
//
// Engine は複数のゴルーチンから同時に利用できる。学習済みレコードは登録後に変更されない。
//
//	eng := engine.New(engine.WithStore(store.NewMemory()))
//	id, err := eng.TrainDecisionTree(X, y, tree.WithMaxDepth(3))
//	pred, err := eng.Predict(id, Xtest)
//	err = eng.SaveModel(id)
package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/YuminosukeSato/predictive/core/model"
	"github.com/YuminosukeSato/predictive/pkg/errors"
	"github.com/YuminosukeSato/predictive/pkg/log"
)

// Store はモデルスナップショットの保存先
//
// Get はキーが存在しない場合 ok=false、err=nil を返す。
type Store interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
}

// Record はレジストリに登録された学習済みモデル
type Record struct {
	ID        string
	Kind      model.Kind
	Params    map[string]interface{}
	TrainedAt time.Time
	// NFeatures は学習時の特徴量数
	NFeatures int
	// Model は *tree.DecisionTree, *ensemble.RandomForest,
	// *ensemble.GradientBoosting, *linear_model.LinearRegression のいずれか
	Model interface{}
}

// Engine は学習済みモデルのレジストリ
type Engine struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string

	store  Store
	logger log.Logger
	newID  func(model.Kind) string
	now    func() time.Time

	seedMu sync.Mutex
	rng    *rand.Rand
}

// New は空のレジストリを持つEngineを作成する
func New(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Engine{
		records: make(map[string]*Record),
		store:   cfg.store,
		logger:  cfg.logger,
		newID:   cfg.newID,
		now:     cfg.now,
		rng:     rand.New(rand.NewSource(cfg.seed)),
	}
}

// GetModel はidのレコードを返す
func (e *Engine) GetModel(id string) (*Record, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, ok := e.records[id]
	return rec, ok
}

// ListModels は登録済みのidを登録順に返す
func (e *Engine) ListModels() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.order...)
}

func (e *Engine) lookup(id string) (*Record, error) {
	rec, ok := e.GetModel(id)
	if !ok {
		return nil, errors.NewModelNotFoundError(id)
	}
	return rec, nil
}

// insert は新しいidでレコードを登録する。idが既に使われている場合はエラーを返す。
func (e *Engine) insert(rec *Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.records[rec.ID]; exists {
		return errors.NewValueError("engine.insert", "duplicate model id "+rec.ID)
	}
	e.records[rec.ID] = rec
	e.order = append(e.order, rec.ID)
	return nil
}

// replace はidのレコードを上書きする。新しいidなら末尾に追加する。
func (e *Engine) replace(rec *Record) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.records[rec.ID]; !exists {
		e.order = append(e.order, rec.ID)
	}
	e.records[rec.ID] = rec
}

// nextSeed はエンジンの乱数生成器から次のシードを取り出す
func (e *Engine) nextSeed() int64 {
	e.seedMu.Lock()
	defer e.seedMu.Unlock()
	return e.rng.Int63()
}
