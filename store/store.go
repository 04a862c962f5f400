// Package store はモデルスナップショットを保存するキーバリューストアの実装を提供する
//
// どの実装も Get(key) ([]byte, bool, error) と Set(key, value) error を満たし、
// engine.Store としてそのまま利用できる。
package store

// Store はバイト列を文字列キーで保存するストアの最小契約
type Store interface {
	// Get はキーに対応する値を返す。存在しない場合は ok=false でエラーは nil。
	Get(key string) (value []byte, ok bool, err error)
	// Set はキーに値を書き込む。既存の値は上書きされる。
	Set(key string, value []byte) error
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}
