package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/apperror"
)

// withRetry re-runs fn while it fails with a serialization conflict, up to the
// configured number of attempts. fn must re-read everything it uses; nothing
// from a failed attempt is carried over.
func (s *WalletServiceImpl) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := s.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, domain.ErrSerializationConflict) {
			return err
		}
		if attempt == attempts {
			break
		}

		s.log.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Dur("backoff", s.cfg.RetryBackoff).
			Msg("serialization conflict, retrying")

		timer := time.NewTimer(s.cfg.RetryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: retry aborted: %w", op, ctx.Err())
		case <-timer.C:
		}
	}

	s.log.Error().Err(err).Str("op", op).Int("attempts", attempts).Msg("retry budget exhausted")
	return apperror.ErrSerializationConflict(err)
}
