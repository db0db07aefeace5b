// Package memory holds in-process stand-ins for the redis adapters, used when
// REDIS_URL is empty. State is lost on restart and is not shared between processes.
package memory

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/iho/godeposit/internal/domain"
)

// ErrCacheMiss is returned by Cache.Get for absent or expired keys.
var ErrCacheMiss = errors.New("cache miss")

type item struct {
	value     []byte
	expiresAt time.Time
}

func (i item) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

type store struct {
	mu    sync.Mutex
	items map[string]item
	now   func() time.Time
}

func newStore() store {
	return store{items: make(map[string]item), now: time.Now}
}

func (s *store) get(key string) ([]byte, bool) {
	it, ok := s.items[key]
	if !ok {
		return nil, false
	}
	if it.expired(s.now()) {
		delete(s.items, key)
		return nil, false
	}
	return it.value, true
}

// Cache implements usecase.Cache.
type Cache struct {
	store
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{store: newStore()}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item{value: value, expiresAt: expiry(c.now(), ttl)}
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// IdempotencyStore implements usecase.IdempotencyStore.
type IdempotencyStore struct {
	store
}

// NewIdempotencyStore creates an empty IdempotencyStore.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{store: newStore()}
}

func (s *IdempotencyStore) CheckAndSet(_ context.Context, key string, value []byte, ttl time.Duration) (bool, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.get(key); ok {
		return true, existing, nil
	}
	s.items[key] = item{value: value, expiresAt: expiry(s.now(), ttl)}
	return false, nil, nil
}

func (s *IdempotencyStore) Update(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = item{value: value, expiresAt: expiry(s.now(), ttl)}
	return nil
}

func (s *IdempotencyStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// AccountLocker implements usecase.AccountLocker for a single process.
type AccountLocker struct {
	store
	seq uint64
}

// NewAccountLocker creates an AccountLocker with no held locks.
func NewAccountLocker() *AccountLocker {
	return &AccountLocker{store: newStore()}
}

func (l *AccountLocker) Acquire(_ context.Context, address string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.get(address); held {
		return nil, domain.ErrAccountBusy
	}

	l.seq++
	token := l.seq
	l.items[address] = item{value: tokenBytes(token), expiresAt: expiry(l.now(), ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if v, ok := l.get(address); ok && string(v) == string(tokenBytes(token)) {
			delete(l.items, address)
		}
		return nil
	}, nil
}

func tokenBytes(n uint64) []byte {
	return strconv.AppendUint(nil, n, 10)
}
