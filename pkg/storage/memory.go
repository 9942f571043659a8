package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

//Memory is an in-process Blob, used by tests and the offline CLI when no store is configured
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Name() string {
	return "memory"
}

func (m *Memory) Put(ctx context.Context, data []byte, objectPath, contentType string) (string, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.objects[p] = buf
	m.mu.Unlock()

	return m.URL(p), nil
}

func (m *Memory) URL(objectPath string) string {
	p, _ := cleanPath(objectPath)
	return "mem://" + p
}

func (m *Memory) Get(ctx context.Context, objectPath string) ([]byte, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[p]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0)
	for p := range m.objects {
		if strings.HasPrefix(p, prefix) {
			names = append(names, p)
		}
	}
	sort.Strings(names)
	return names, nil
}
