package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/ports"
)

// ledgerTablesQuery is true only when every table the engine writes exists.
const ledgerTablesQuery = `SELECT to_regclass('wallets') IS NOT NULL
	AND to_regclass('transaction_histories') IS NOT NULL
	AND to_regclass('idempotency_keys') IS NOT NULL`

// HealthCheck reports whether PostgreSQL is reachable and carries the ledger schema.
type HealthCheck struct {
	pool   Pool
	target string
}

// NewHealthCheck creates a PostgreSQL health checker. target is reported as-is.
func NewHealthCheck(pool Pool, target string) *HealthCheck {
	return &HealthCheck{pool: pool, target: target}
}

// Check pings the pool, then verifies the ledger tables.
func (h *HealthCheck) Check(ctx context.Context) ports.HealthStatus {
	status := ports.HealthStatus{Name: "postgresql", Target: h.target}
	start := time.Now()
	err := h.check(ctx)
	status.Latency = time.Since(start)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Healthy = true
	return status
}

func (h *HealthCheck) check(ctx context.Context) error {
	if err := h.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	var ready bool
	if err := h.pool.QueryRow(ctx, ledgerTablesQuery).Scan(&ready); err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if !ready {
		return errors.New("ledger tables missing, apply schema/schema.sql")
	}
	return nil
}
