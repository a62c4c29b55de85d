package store

import (
	"context"
	"sync"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// MemorySignalStore 是内存实现的辅助信号存储，用于测试/开发。
// 线程安全；进程重启后数据丢失。
type MemorySignalStore struct {
	mu      sync.RWMutex
	signals map[core.EntityKind]map[string]float64
}

func NewMemorySignalStore() *MemorySignalStore {
	return &MemorySignalStore{
		signals: make(map[core.EntityKind]map[string]float64),
	}
}

// BatchGet 实现 core.SignalService 接口。
func (m *MemorySignalStore) BatchGet(_ context.Context, kind core.EntityKind, ids []string) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]float64, len(ids))
	vals, ok := m.signals[kind]
	if !ok {
		return result, nil
	}
	for _, id := range ids {
		if v, found := vals[id]; found {
			result[id] = v
		}
	}
	return result, nil
}

// BatchSet 实现 core.SignalWriter 接口。
func (m *MemorySignalStore) BatchSet(_ context.Context, kind core.EntityKind, values map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	vals, ok := m.signals[kind]
	if !ok {
		vals = make(map[string]float64, len(values))
		m.signals[kind] = vals
	}
	for id, v := range values {
		vals[id] = v
	}
	return nil
}

func (m *MemorySignalStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = make(map[core.EntityKind]map[string]float64)
	return nil
}

var (
	_ core.SignalService = (*MemorySignalStore)(nil)
	_ core.SignalWriter  = (*MemorySignalStore)(nil)
)
