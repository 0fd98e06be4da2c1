package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zatekoja/druglabels/backend/internal/domain/providers"
)

// DefaultMemorySize is the entry bound used when a non-positive size is given.
const DefaultMemorySize = 4096

// MemoryAdapter implements the CacheProvider interface with bounded in-process
// LRUs that evict expired entries. expirable.LRU has one TTL per cache, so
// entries are kept in one LRU per expiration; size bounds each of them.
type MemoryAdapter struct {
	size int

	mu      sync.RWMutex
	buckets map[int]*expirable.LRU[string, []byte]
}

// NewMemoryAdapter creates an in-memory cache holding at most size entries per expiration
func NewMemoryAdapter(size int) (*MemoryAdapter, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &MemoryAdapter{
		size:    size,
		buckets: make(map[int]*expirable.LRU[string, []byte]),
	}, nil
}

func (a *MemoryAdapter) bucket(expirationSeconds int) *expirable.LRU[string, []byte] {
	if expirationSeconds < 0 {
		expirationSeconds = 0
	}

	a.mu.RLock()
	b, ok := a.buckets[expirationSeconds]
	a.mu.RUnlock()
	if ok {
		return b
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.buckets[expirationSeconds]; ok {
		return b
	}
	// A zero TTL makes expirable keep entries until they are evicted.
	b = expirable.NewLRU[string, []byte](a.size, nil, time.Duration(expirationSeconds)*time.Second)
	a.buckets[expirationSeconds] = b
	return b
}

func (a *MemoryAdapter) snapshot() []*expirable.LRU[string, []byte] {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*expirable.LRU[string, []byte], 0, len(a.buckets))
	for _, b := range a.buckets {
		out = append(out, b)
	}
	return out
}

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(_ context.Context, key string) ([]byte, error) {
	for _, b := range a.snapshot() {
		if value, ok := b.Get(key); ok {
			out := make([]byte, len(value))
			copy(out, value)
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", providers.ErrCacheMiss, key)
}

// Set stores a value in cache with expiration. A non-positive expiration keeps the key until evicted.
func (a *MemoryAdapter) Set(_ context.Context, key string, value []byte, expirationSeconds int) error {
	target := a.bucket(expirationSeconds)
	for _, b := range a.snapshot() {
		if b != target {
			b.Remove(key)
		}
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	target.Add(key, stored)
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(_ context.Context, key string) error {
	for _, b := range a.snapshot() {
		b.Remove(key)
	}
	return nil
}

// Exists checks if an unexpired key exists in cache
func (a *MemoryAdapter) Exists(_ context.Context, key string) (bool, error) {
	for _, b := range a.snapshot() {
		if _, ok := b.Peek(key); ok {
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of stored entries
func (a *MemoryAdapter) Len() int {
	n := 0
	for _, b := range a.snapshot() {
		n += b.Len()
	}
	return n
}
