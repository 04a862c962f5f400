package store

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/YuminosukeSato/predictive/pkg/errors"
)

// LevelDB はgoleveldbをバックエンドとするストア
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB はpathのデータベースを開く。存在しなければ作成する。
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		OpenFilesCacheCapacity: 100,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open leveldb %s", path)
	}
	return &LevelDB{db: db}, nil
}

// OpenInMemoryLevelDB はメモリ上のストレージでデータベースを開く（テスト用）
func OpenInMemoryLevelDB() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "open in-memory leveldb")
	}
	return &LevelDB{db: db}, nil
}

// Get implements Store. leveldb.ErrNotFound はミスとして扱う。
func (l *LevelDB) Get(key string) ([]byte, bool, error) {
	v, err := l.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "leveldb get %s", key)
	}
	return v, true, nil
}

// Set implements Store.
func (l *LevelDB) Set(key string, value []byte) error {
	if err := l.db.Put([]byte(key), value, nil); err != nil {
		return errors.Wrapf(err, "leveldb put %s", key)
	}
	return nil
}

// Close はデータベースを閉じる
func (l *LevelDB) Close() error {
	return l.db.Close()
}
