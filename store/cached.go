package store

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/YuminosukeSato/predictive/pkg/errors"
)

// DefaultCacheSize はCachedのデフォルト容量
const DefaultCacheSize = 128

// Cached は別のストアの前段に置くLRU読み取りキャッシュ
//
// 読み取りはキャッシュにない場合のみ下位ストアへ問い合わせる。
// 書き込みは下位ストアへの書き込みが成功した後にキャッシュへ反映される。
type Cached struct {
	backend Store
	cache   *lru.Cache
}

// NewCached はbackendの前段にsize件のLRUキャッシュを置く。size <= 0 はDefaultCacheSize。
func NewCached(backend Store, size int) (*Cached, error) {
	if backend == nil {
		return nil, errors.NewValueError("store.NewCached", "nil backend")
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "create lru cache")
	}
	return &Cached{backend: backend, cache: cache}, nil
}

// Get implements Store.
func (c *Cached) Get(key string) ([]byte, bool, error) {
	if v, ok := c.cache.Get(key); ok {
		return clone(v.([]byte)), true, nil
	}
	v, ok, err := c.backend.Get(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	c.cache.Add(key, clone(v))
	return v, true, nil
}

// Set implements Store.
func (c *Cached) Set(key string, value []byte) error {
	if err := c.backend.Set(key, value); err != nil {
		c.cache.Remove(key)
		return err
	}
	c.cache.Add(key, clone(value))
	return nil
}

// Len はキャッシュされているエントリ数を返す
func (c *Cached) Len() int { return c.cache.Len() }

// Purge はキャッシュを空にする。下位ストアには影響しない。
func (c *Cached) Purge() { c.cache.Purge() }
