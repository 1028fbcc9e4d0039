package client

import (
	"encoding/json"
	"os"
	"sync"
)

// Storage persists small string values across client restarts, the way a
// browser's localStorage does.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemStorage is an in-memory Storage, nothing survives a restart.
type MemStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Storage = (*MemStorage)(nil)

func NewMemStorage() *MemStorage {
	return &MemStorage{values: map[string]string{}}
}

func (m *MemStorage) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok
}

func (m *MemStorage) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *MemStorage) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// FileStorage keeps values in a JSON file so a session's email survives a
// client restart. The file is created owner-readable only.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

var _ Storage = (*FileStorage)(nil)

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (f *FileStorage) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.load()[key]
	return value, ok
}

func (f *FileStorage) Set(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values := f.load()
	values[key] = value
	f.save(values)
}

func (f *FileStorage) Delete(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values := f.load()
	delete(values, key)
	f.save(values)
}

func (f *FileStorage) load() map[string]string {
	values := map[string]string{}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return values
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return map[string]string{}
	}
	return values
}

func (f *FileStorage) save(values map[string]string) {
	data, err := json.Marshal(values)
	if err != nil {
		return
	}
	_ = os.WriteFile(f.path, data, 0o600)
}
