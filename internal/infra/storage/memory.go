package storage

import (
	"context"
	"sync"
)

type Object struct {
	ContentType string
	Body        []byte
}

// Memory is the object store used in development and tests.
type Memory struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

var _ ObjectStore = (*Memory)(nil)

func NewMemory(baseURL string) *Memory {
	return &Memory{
		baseURL: baseURL,
		objects: make(map[string]Object),
	}
}

func (m *Memory) Put(_ context.Context, key, contentType string, body []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = Object{ContentType: contentType, Body: append([]byte(nil), body...)}
	return m.baseURL + "/" + key, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	return nil
}

func (m *Memory) Get(key string) (Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return Object{}, ErrObjectNotFound
	}
	return obj, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
