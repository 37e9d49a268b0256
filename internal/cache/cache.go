// Package cache defines the key/value contract the share and device stores are
// built on, with a Redis implementation in redisstore and an in-process one here.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TTL results for keys without a remaining lifetime, as Redis reports them.
const (
	TTLPersistent time.Duration = -1
	TTLMissing    time.Duration = -2
)

type Interface interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Del(ctx context.Context, keys ...string) error
}

type entry struct {
	val     []byte
	expires time.Time
}

// Memory is a bounded in-process store used when Redis is not configured.
// Entries expire lazily on read.
type Memory struct {
	mu  sync.Mutex
	lru *lru.Cache[string, entry]
	now func() time.Time
}

func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("memory cache: %w", err)
	}
	return &Memory{lru: c, now: time.Now}, nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(key)
}

func (m *Memory) getLocked(key string) ([]byte, bool, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.lru.Remove(key)
		return nil, false, nil
	}
	return append([]byte(nil), e.val...), true, nil
}

func (m *Memory) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok, _ := m.getLocked(k); ok {
			out[k] = v
		}
	}
	return out, nil
}

// Set stores val; ttl<=0 keeps it until evicted.
func (m *Memory) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := entry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.lru.Add(key, e)
	m.mu.Unlock()
	return nil
}

// TTL returns the remaining lifetime of key, TTLMissing or TTLPersistent.
func (m *Memory) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok, _ := m.getLocked(key); !ok {
		return TTLMissing, nil
	}
	e, _ := m.lru.Peek(key)
	if e.expires.IsZero() {
		return TTLPersistent, nil
	}
	return e.expires.Sub(m.now()), nil
}

func (m *Memory) Del(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	for _, k := range keys {
		m.lru.Remove(k)
	}
	m.mu.Unlock()
	return nil
}

// timeoutStore bounds every call on the wrapped store.
type timeoutStore struct {
	inner Interface
	d     time.Duration
}

// WithTimeout wraps inner so each operation gets at most d. d<=0 returns inner.
func WithTimeout(inner Interface, d time.Duration) Interface {
	if d <= 0 {
		return inner
	}
	return &timeoutStore{inner: inner, d: d}
}

func (t *timeoutStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.Get(ctx, key)
}

func (t *timeoutStore) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.MGet(ctx, keys)
}

func (t *timeoutStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.Set(ctx, key, val, ttl)
}

func (t *timeoutStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.TTL(ctx, key)
}

func (t *timeoutStore) Del(ctx context.Context, keys ...string) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.Del(ctx, keys...)
}
