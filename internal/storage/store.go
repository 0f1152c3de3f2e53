package storage

import (
	"context"
	"errors"
	"sync"
)

// Store is a key-value store of opaque payloads.
type Store interface {
	// Get returns the payload stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Put overwrites the payload stored under key.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// ErrQuotaExceeded is returned by Memory when its write budget is exhausted.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte

	// MaxBytes caps the total stored payload size; zero means unlimited.
	MaxBytes int
	// FailReads makes every Get fail, simulating unavailable storage.
	FailReads bool
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReads {
		return nil, false, errors.New("storage: read unavailable")
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MaxBytes > 0 {
		total := len(value)
		for k, v := range m.data {
			if k != key {
				total += len(v)
			}
		}
		if total > m.MaxBytes {
			return ErrQuotaExceeded
		}
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
