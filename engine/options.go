package engine

import (
	"time"

	"github.com/YuminosukeSato/predictive/core/model"
	"github.com/YuminosukeSato/predictive/pkg/log"
)

type config struct {
	store  Store
	logger log.Logger
	seed   int64
	newID  func(model.Kind) string
	now    func() time.Time
}

func defaultConfig() *config {
	return &config{
		logger: log.GetLoggerWithName("engine"),
		seed:   time.Now().UnixNano(),
		newID:  uuidID,
		now:    time.Now,
	}
}

// Option はEngineの設定を変更する
type Option func(*config)

// WithStore はSaveModel/LoadModelが使うストアを設定する
func WithStore(s Store) Option {
	return func(c *config) { c.store = s }
}

// WithLogger はエンジンのロガーを設定する
func WithLogger(l log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSeed はランダムフォレストにシードが指定されなかったときに使う乱数のシードを固定する
func WithSeed(seed int64) Option {
	return func(c *config) { c.seed = seed }
}

// WithIDGenerator はモデルidの生成関数を設定する。生成されるidは一意でなければならない。
func WithIDGenerator(fn func(model.Kind) string) Option {
	return func(c *config) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithClock はTrainedAtに使う時刻関数を設定する
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// SequentialIDs は "<kind>-1", "<kind>-2", ... の連番idを使う（テスト用）
func SequentialIDs() Option {
	return WithIDGenerator(newSequence())
}
