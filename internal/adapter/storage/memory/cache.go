package memory

import (
	"context"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time // zero = no expiry
}

func (e cacheEntry[T]) live(now time.Time) bool {
	return e.expiresAt.IsZero() || now.Before(e.expiresAt)
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// WalletCache is an in-process ports.WalletCache with the same generation
// semantics as the Redis one.
type WalletCache struct {
	mu           sync.Mutex
	wallets      map[uuid.UUID]cacheEntry[domain.Wallet]
	transactions map[uuid.UUID]cacheEntry[[]domain.TransactionHistory]
	generations  map[uuid.UUID]int64
	versions     map[uuid.UUID]int64 // highest installed wallet version, kept across invalidation

	walletTTL  time.Duration
	historyTTL time.Duration
	now        func() time.Time
}

// NewWalletCache creates an empty in-process wallet cache.
func NewWalletCache(walletTTL, historyTTL time.Duration) *WalletCache {
	return &WalletCache{
		wallets:      make(map[uuid.UUID]cacheEntry[domain.Wallet]),
		transactions: make(map[uuid.UUID]cacheEntry[[]domain.TransactionHistory]),
		generations:  make(map[uuid.UUID]int64),
		versions:     make(map[uuid.UUID]int64),
		walletTTL:    walletTTL,
		historyTTL:   historyTTL,
		now:          time.Now,
	}
}

func (c *WalletCache) GetWallet(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.wallets[id]
	if !ok || !e.live(c.now()) {
		return nil, nil
	}
	w := e.value
	return &w, nil
}

func (c *WalletCache) GetTransactions(_ context.Context, id uuid.UUID) ([]domain.TransactionHistory, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.transactions[id]
	if !ok || !e.live(c.now()) {
		return nil, false, nil
	}
	return append([]domain.TransactionHistory{}, e.value...), true, nil
}

func (c *WalletCache) Generation(_ context.Context, id uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[id], nil
}

func (c *WalletCache) SetWallet(_ context.Context, w *domain.Wallet, gen int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[w.ID] != gen || c.versions[w.ID] > w.Version {
		return nil
	}
	c.versions[w.ID] = w.Version
	c.wallets[w.ID] = cacheEntry[domain.Wallet]{value: *w, expiresAt: expiry(c.now(), c.walletTTL)}
	return nil
}

func (c *WalletCache) SetTransactions(_ context.Context, id uuid.UUID, entries []domain.TransactionHistory, gen int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[id] != gen {
		return nil
	}
	c.transactions[id] = cacheEntry[[]domain.TransactionHistory]{
		value:     append([]domain.TransactionHistory{}, entries...),
		expiresAt: expiry(c.now(), c.historyTTL),
	}
	return nil
}

func (c *WalletCache) Invalidate(_ context.Context, ids ...uuid.UUID) (map[uuid.UUID]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gens := make(map[uuid.UUID]int64, len(ids))
	for _, id := range ids {
		delete(c.wallets, id)
		delete(c.transactions, id)
		c.generations[id]++
		gens[id] = c.generations[id]
	}
	return gens, nil
}

// IdempotencyCache is an in-process ports.IdempotencyCache. The first stored body wins.
type IdempotencyCache struct {
	mu     sync.Mutex
	bodies map[string]cacheEntry[[]byte]
	now    func() time.Time
}

// NewIdempotencyCache creates an empty in-process replay cache.
func NewIdempotencyCache() *IdempotencyCache {
	return &IdempotencyCache{
		bodies: make(map[string]cacheEntry[[]byte]),
		now:    time.Now,
	}
}

func (c *IdempotencyCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.bodies[key]
	if !ok || !e.live(c.now()) {
		return nil, nil
	}
	return append([]byte(nil), e.value...), nil
}

func (c *IdempotencyCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if e, ok := c.bodies[key]; ok && e.live(now) {
		return nil
	}
	c.bodies[key] = cacheEntry[[]byte]{value: append([]byte(nil), value...), expiresAt: expiry(now, ttl)}
	return nil
}
