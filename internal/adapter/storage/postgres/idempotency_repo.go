package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Insert claims a key. A key that already exists is reported as false, not as an error.
func (r *IdempotencyRepo) Insert(ctx context.Context, k *domain.IdempotencyKey) (bool, error) {
	query := `INSERT INTO idempotency_keys (key, status, fingerprint, response_body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		k.Key, string(k.Status), k.Fingerprint, nullableBody(k.ResponseBody), k.CreatedAt, k.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert idempotency key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get fetches an idempotency key.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	query := `SELECT key, status, fingerprint, response_body, created_at, updated_at
		FROM idempotency_keys WHERE key = $1`

	var (
		k      domain.IdempotencyKey
		status string
		body   []byte
	)
	err := r.pool.QueryRow(ctx, query, key).Scan(&k.Key, &status, &k.Fingerprint, &body, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	k.Status = domain.IdempotencyStatus(status)
	k.ResponseBody = body
	return &k, nil
}

// Reclaim resets a failed or stale key to processing, compare-and-set on the observed state.
func (r *IdempotencyRepo) Reclaim(ctx context.Context, observed *domain.IdempotencyKey, now time.Time) (bool, error) {
	query := `UPDATE idempotency_keys SET status = $1, response_body = NULL, updated_at = $2
		WHERE key = $3 AND status = $4 AND updated_at = $5`

	tag, err := r.pool.Exec(ctx, query,
		string(domain.IdempotencyProcessing), now, observed.Key, string(observed.Status), observed.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("reclaim idempotency key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Finish records the terminal status of a processing key.
func (r *IdempotencyRepo) Finish(ctx context.Context, key string, status domain.IdempotencyStatus, body []byte, now time.Time) error {
	query := `UPDATE idempotency_keys SET status = $1, response_body = $2, updated_at = $3
		WHERE key = $4 AND status = $5`

	tag, err := r.pool.Exec(ctx, query, string(status), nullableBody(body), now, key, string(domain.IdempotencyProcessing))
	if err != nil {
		return fmt.Errorf("finish idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish idempotency key %q: %w", key, domain.ErrIdempotencyKeyMissing)
	}
	return nil
}

// nullableBody stores empty bodies as SQL NULL and everything else as raw bytes.
func nullableBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	return body
}
