package store

import "sync"

// MemoryStore 进程内会话存储，进程退出即丢失。
type MemoryStore[T any] struct {
	mu    sync.RWMutex
	value T
	ok    bool
}

// NewMemoryStore 创建空的 MemoryStore。
func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{}
}

// SaveSession 实现 SessionStore。
func (m *MemoryStore[T]) SaveSession(session T) error {
	m.mu.Lock()
	m.value, m.ok = session, true
	m.mu.Unlock()
	return nil
}

// LoadSession 实现 SessionStore，未保存过时返回 ErrNotFound。
func (m *MemoryStore[T]) LoadSession() (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ok {
		var zero T
		return zero, ErrNotFound
	}
	return m.value, nil
}

// ClearSession 实现 SessionStore。
func (m *MemoryStore[T]) ClearSession() error {
	m.mu.Lock()
	var zero T
	m.value, m.ok = zero, false
	m.mu.Unlock()
	return nil
}
