package service

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// IdempotencyGuardImpl implements ports.IdempotencyGuard.
// The database row is authoritative; Redis only caches completed bodies.
type IdempotencyGuardImpl struct {
	repo  ports.IdempotencyRepository
	cache ports.IdempotencyCache
	clock ports.Clock
	cfg   config.IdempotencyConfig
	log   zerolog.Logger
}

// NewIdempotencyGuard creates a new IdempotencyGuardImpl.
func NewIdempotencyGuard(
	repo ports.IdempotencyRepository,
	cache ports.IdempotencyCache,
	clock ports.Clock,
	cfg config.IdempotencyConfig,
	log zerolog.Logger,
) *IdempotencyGuardImpl {
	return &IdempotencyGuardImpl{
		repo:  repo,
		cache: cache,
		clock: clock,
		cfg:   cfg,
		log:   log,
	}
}

// Claim takes ownership of key, or reports what already happened under it.
// A processing key younger than stale_after yields a Conflict error, and so
// does a key first claimed with a different fingerprint.
func (g *IdempotencyGuardImpl) Claim(ctx context.Context, key, fingerprint string) (*ports.ClaimResult, error) {
	if key == "" {
		return nil, apperror.Validation("idempotency key is required")
	}

	// Layer 1: Redis replay cache
	cached, err := g.cache.Get(ctx, replayKey(key, fingerprint))
	if err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return &ports.ClaimResult{Status: domain.IdempotencyCompleted, Body: cached}, nil
	}

	// Layer 2: unique insert in the database
	now := g.clock.Now()
	created, err := g.repo.Insert(ctx, &domain.IdempotencyKey{
		Key:         key,
		Status:      domain.IdempotencyProcessing,
		Fingerprint: fingerprint,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("claim idempotency key: %w", err))
	}
	if created {
		return &ports.ClaimResult{Fresh: true, Status: domain.IdempotencyProcessing}, nil
	}

	existing, err := g.repo.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get idempotency key: %w", err))
	}
	if existing == nil {
		return nil, apperror.InternalError(fmt.Errorf("idempotency key %q vanished after conflicting insert", key))
	}

	if existing.Fingerprint != fingerprint {
		g.log.Warn().
			Str("key", key).
			Str("stored_fingerprint", existing.Fingerprint).
			Str("fingerprint", fingerprint).
			Msg("idempotency key reused for a different request")
		return nil, apperror.ErrIdempotencyKeyReused()
	}

	switch {
	case existing.Status == domain.IdempotencyCompleted:
		g.warmCache(ctx, replayKey(key, fingerprint), existing.ResponseBody)
		return &ports.ClaimResult{Status: existing.Status, Body: existing.ResponseBody}, nil

	case existing.Reclaimable(now, g.cfg.StaleAfter):
		ok, err := g.repo.Reclaim(ctx, existing, now)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("reclaim idempotency key: %w", err))
		}
		if !ok {
			return nil, apperror.ErrRequestInProgress()
		}
		g.log.Info().
			Str("key", key).
			Str("previous_status", string(existing.Status)).
			Msg("idempotency key reclaimed")
		return &ports.ClaimResult{Fresh: true, Status: domain.IdempotencyProcessing}, nil

	default:
		return nil, apperror.ErrRequestInProgress()
	}
}

// Complete stores the response body and marks key completed.
func (g *IdempotencyGuardImpl) Complete(ctx context.Context, key, fingerprint string, body []byte) error {
	if err := g.finish(ctx, key, domain.IdempotencyCompleted, body); err != nil {
		return err
	}
	g.warmCache(ctx, replayKey(key, fingerprint), body)
	return nil
}

// Fail marks key failed so that a client retry may claim it again.
func (g *IdempotencyGuardImpl) Fail(ctx context.Context, key string, body []byte) error {
	return g.finish(ctx, key, domain.IdempotencyFailed, body)
}

func (g *IdempotencyGuardImpl) finish(ctx context.Context, key string, status domain.IdempotencyStatus, body []byte) error {
	err := g.repo.Finish(ctx, key, status, body, g.clock.Now())
	if err != nil {
		if errors.Is(err, domain.ErrIdempotencyKeyMissing) {
			return apperror.InternalError(fmt.Errorf("idempotency key %q is not processing: %w", key, err))
		}
		return apperror.InternalError(fmt.Errorf("finish idempotency key: %w", err))
	}
	return nil
}

func (g *IdempotencyGuardImpl) warmCache(ctx context.Context, key string, body []byte) {
	if err := g.cache.Set(ctx, key, body, g.cfg.TTL); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency in redis")
	}
}

// replayKey scopes the cached body to the request that produced it, so a
// reused key with another fingerprint misses and is judged by the database.
func replayKey(key, fingerprint string) string {
	return key + "#" + fingerprint
}
