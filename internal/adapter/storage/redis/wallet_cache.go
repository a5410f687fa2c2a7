package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// setIfGeneration writes KEYS[2] only while KEYS[1] still holds ARGV[1].
// A missing generation counts as 0.
var setIfGeneration = goredis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then current = '0' end
if current ~= ARGV[1] then return 0 end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ttl)
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

// setWalletIfCurrent is setIfGeneration for wallet snapshots, additionally
// refusing a version lower than the highest one installed so far (KEYS[3]).
var setWalletIfCurrent = goredis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then current = '0' end
if current ~= ARGV[1] then return 0 end
local version = tonumber(ARGV[4])
local installed = tonumber(redis.call('GET', KEYS[3]) or '0')
if installed > version then return 0 end
redis.call('SET', KEYS[3], ARGV[4])
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ttl)
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

// WalletCache implements ports.WalletCache using Redis.
type WalletCache struct {
	client     *goredis.Client
	walletTTL  time.Duration
	historyTTL time.Duration
}

// NewWalletCache creates a Redis-backed wallet cache.
func NewWalletCache(client *goredis.Client, walletTTL, historyTTL time.Duration) *WalletCache {
	return &WalletCache{
		client:     client,
		walletTTL:  walletTTL,
		historyTTL: historyTTL,
	}
}

// GetWallet returns the cached snapshot, or nil on a miss.
func (c *WalletCache) GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	raw, err := c.client.Get(ctx, domain.WalletCacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis wallet get: %w", err)
	}
	var w domain.Wallet
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode cached wallet: %w", err)
	}
	return &w, nil
}

// GetTransactions returns the cached history list. ok is false on a miss.
func (c *WalletCache) GetTransactions(ctx context.Context, id uuid.UUID) ([]domain.TransactionHistory, bool, error) {
	raw, err := c.client.Get(ctx, domain.TransactionsCacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis transactions get: %w", err)
	}
	entries := []domain.TransactionHistory{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, fmt.Errorf("decode cached transactions: %w", err)
	}
	return entries, true, nil
}

// Generation returns the invalidation counter for id.
func (c *WalletCache) Generation(ctx context.Context, id uuid.UUID) (int64, error) {
	gen, err := c.client.Get(ctx, domain.GenerationCacheKey(id)).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis generation get: %w", err)
	}
	return gen, nil
}

// SetWallet caches w if no invalidation happened since gen was read and no
// newer version of the wallet has been cached before.
func (c *WalletCache) SetWallet(ctx context.Context, w *domain.Wallet, gen int64) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode wallet: %w", err)
	}
	keys := []string{domain.GenerationCacheKey(w.ID), domain.WalletCacheKey(w.ID), domain.VersionCacheKey(w.ID)}
	err = setWalletIfCurrent.Run(ctx, c.client, keys, gen, raw, c.walletTTL.Milliseconds(), w.Version).Err()
	if err != nil {
		return fmt.Errorf("redis set %s: %w", keys[1], err)
	}
	return nil
}

// SetTransactions caches entries for id if no invalidation happened since gen was read.
func (c *WalletCache) SetTransactions(ctx context.Context, id uuid.UUID, entries []domain.TransactionHistory, gen int64) error {
	if entries == nil {
		entries = []domain.TransactionHistory{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}
	return c.setIfGeneration(ctx, id, domain.TransactionsCacheKey(id), raw, gen, c.historyTTL)
}

func (c *WalletCache) setIfGeneration(ctx context.Context, id uuid.UUID, key string, raw []byte, gen int64, ttl time.Duration) error {
	keys := []string{domain.GenerationCacheKey(id), key}
	err := setIfGeneration.Run(ctx, c.client, keys, gen, raw, ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Invalidate deletes the snapshot and history entries of every id and bumps
// their generations in one MULTI/EXEC.
func (c *WalletCache) Invalidate(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]int64, error) {
	incrs := make(map[uuid.UUID]*goredis.IntCmd, len(ids))
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, domain.WalletCacheKey(id), domain.TransactionsCacheKey(id))
			incrs[id] = pipe.Incr(ctx, domain.GenerationCacheKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis invalidate: %w", err)
	}

	gens := make(map[uuid.UUID]int64, len(ids))
	for id, cmd := range incrs {
		gens[id] = cmd.Val()
	}
	return gens, nil
}
