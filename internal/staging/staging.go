// Package staging предоставляет доступ к staging-хранилищу объектов
// до их комбинирования во внешнем сервисе.
package staging

import (
	"context"
	"sort"
	"sync"
)

// Store описывает контракт staging-хранилища: перечисление по префиксу,
// запись и удаление объектов по имени.
type Store interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Put(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
	Close() error
}

// MemoryStore — потокобезопасная реализация Store в памяти.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore создаёт пустое staging-хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// List возвращает имена объектов с указанным префиксом в лексикографическом порядке.
func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for name := range m.objects {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Put сохраняет объект под указанным именем.
func (m *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[name] = cp
	return nil
}

// Delete удаляет объект по имени. Отсутствие объекта не является ошибкой.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, name)
	return nil
}

// Close освобождает ресурсы хранилища.
func (m *MemoryStore) Close() error { return nil }
