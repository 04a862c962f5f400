package store

import "sync"

// Memory はプロセス内のマップで保持するストア
//
// 値は書き込み時と読み出し時にコピーされるため、呼び出し側のバッファ変更は反映されない。
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory は空のMemoryストアを作成する
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get implements Store.
func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

// Set implements Store.
func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = clone(value)
	return nil
}

// Len は保存されているキーの数を返す
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
