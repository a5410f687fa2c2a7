package service

import (
	"context"
	"strconv"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// loadWallet reads through the cache. Concurrent misses at the same cache
// generation share one store read. Returns nil, nil if the wallet does not exist.
func (s *WalletServiceImpl) loadWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	key := domain.WalletCacheKey(id)
	cached, err := s.cache.GetWallet(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("wallet cache read failed, falling through to store")
	}
	if cached != nil {
		return cached, nil
	}

	gen, err := s.cache.Generation(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache generation read failed, skipping repopulation")
		return s.walletRepo.GetByID(ctx, id)
	}

	v, err, _ := s.loads.Do(flightKey(key, gen), func() (any, error) {
		w, err := s.walletRepo.GetByID(ctx, id)
		if err != nil || w == nil {
			return w, err
		}
		if err := s.cache.SetWallet(ctx, w, gen); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to repopulate wallet cache")
		}
		return w, nil
	})
	if err != nil {
		return nil, err
	}
	w, _ := v.(*domain.Wallet)
	if w == nil {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

// loadTransactions reads a wallet's history through the cache.
func (s *WalletServiceImpl) loadTransactions(ctx context.Context, id uuid.UUID) ([]domain.TransactionHistory, error) {
	key := domain.TransactionsCacheKey(id)
	cached, ok, err := s.cache.GetTransactions(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("transactions cache read failed, falling through to store")
	}
	if ok {
		return cached, nil
	}

	gen, err := s.cache.Generation(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache generation read failed, skipping repopulation")
		return s.historyRepo.ListByWallet(ctx, id)
	}

	v, err, _ := s.loads.Do(flightKey(key, gen), func() (any, error) {
		entries, err := s.historyRepo.ListByWallet(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetTransactions(ctx, id, entries, gen); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to repopulate transactions cache")
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	entries, _ := v.([]domain.TransactionHistory)
	return append([]domain.TransactionHistory{}, entries...), nil
}

func flightKey(key string, gen int64) string {
	return key + "@" + strconv.FormatInt(gen, 10)
}

// invalidate drops both cache entries of every id after a committed mutation.
// It runs even if the caller's context is already done, so a committed change
// never leaves a stale entry behind.
func (s *WalletServiceImpl) invalidate(ctx context.Context, ids ...uuid.UUID) map[uuid.UUID]int64 {
	gens, err := s.cache.Invalidate(context.WithoutCancel(ctx), ids...)
	if err != nil {
		s.log.Warn().Err(err).Interface("wallet_ids", ids).Msg("failed to invalidate wallet cache")
		return nil
	}
	return gens
}

// refreshCache invalidates w and installs its committed snapshot.
func (s *WalletServiceImpl) refreshCache(ctx context.Context, w *domain.Wallet) {
	gens := s.invalidate(ctx, w.ID)
	gen, ok := gens[w.ID]
	if !ok {
		return
	}
	if err := s.cache.SetWallet(context.WithoutCancel(ctx), w, gen); err != nil {
		s.log.Warn().Err(err).Str("key", domain.WalletCacheKey(w.ID)).Msg("failed to cache wallet snapshot")
	}
}
