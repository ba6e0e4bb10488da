// Package storage defines the persistence surfaces the stores depend on:
// a string-valued key-value store for cart/favorites snapshots and a secure
// store for credentials. Concrete adapters live in the subpackages.
package storage

import (
	"context"
	"sync"
)

// KV is the local persistent key-value store. Get reports absence through
// its second return rather than an error.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Secure is the credential store. Values are expected to be encrypted at
// rest by the implementation.
type Secure interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Memory is an in-process implementation of both KV and Secure, used in
// tests and as the fallback driver.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

var (
	_ KV     = (*Memory)(nil)
	_ Secure = (*Memory)(nil)
)
