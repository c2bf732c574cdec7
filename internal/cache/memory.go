package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is a size-bounded in-process cache whose entries expire after a TTL.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory creates a Memory cache holding at most size entries.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 16
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(keyPrefix + key)
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, val []byte) error {
	m.lru.Add(keyPrefix+key, val)
	return nil
}

// Purge drops every entry.
func (m *Memory) Purge() {
	m.lru.Purge()
}

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
