package credstore

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process Store used by tests and local development.
// Expired entries are treated as absent on every read and reaped by a
// janitor goroutine so the map does not grow without bound.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemory() *Memory {
	m := &Memory{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
	go m.janitor()
	return m
}

func (m *Memory) SetIfAbsent(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[key]; ok && m.now().Before(it.expiresAt) {
		return false, nil
	}
	m.items[key] = memoryItem{value: value, expiresAt: m.now().Add(ttl)}
	return true, nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok || !m.now().Before(it.expiresAt) {
		return "", nil
	}
	return it.value, nil
}

func (m *Memory) GetAndDelete(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok {
		return "", nil
	}
	delete(m.items, key)
	if !m.now().Before(it.expiresAt) {
		return "", nil
	}
	return it.value, nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	return ok && m.now().Before(it.expiresAt), nil
}

// janitor removes expired entries every minute.
func (m *Memory) janitor() {
	for {
		time.Sleep(time.Minute)
		m.mu.Lock()
		now := m.now()
		for k, it := range m.items {
			if !now.Before(it.expiresAt) {
				delete(m.items, k)
			}
		}
		m.mu.Unlock()
	}
}
