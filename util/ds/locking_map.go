package ds

import (
	"iter"
	"sync"
)

// LockingMap is a wrapper around a map that provides a mutex lock.
type LockingMap[K comparable, V any] struct {
	m  map[K]V
	mu sync.RWMutex
}

func NewLockingMap[K comparable, V any]() *LockingMap[K, V] {
	return &LockingMap[K, V]{
		m: make(map[K]V),
	}
}

func (m *LockingMap[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.m[key]
	return value, ok
}

func (m *LockingMap[K, V]) Put(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.m[key] = value
}

func (m *LockingMap[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.m, key)
}

func (m *LockingMap[K, V]) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.m)
}

// All yields a snapshot of the keys and values taken under the read lock, so
// callers may modify the map while ranging.
func (m *LockingMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		m.mu.RLock()
		keys := make([]K, 0, len(m.m))
		values := make([]V, 0, len(m.m))
		for k, v := range m.m {
			keys = append(keys, k)
			values = append(values, v)
		}
		m.mu.RUnlock()

		for i := range keys {
			if !yield(keys[i], values[i]) {
				return
			}
		}
	}
}
