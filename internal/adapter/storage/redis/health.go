package redis

import (
	"context"
	"time"

	"wallet-ledger/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// HealthCheck reports whether the Redis cache tier answers.
// The engine runs without it, so an unhealthy result is degraded service, not an outage.
type HealthCheck struct {
	client *goredis.Client
}

// NewHealthCheck creates a Redis health checker.
func NewHealthCheck(client *goredis.Client) *HealthCheck {
	return &HealthCheck{client: client}
}

// Check pings the server configured on the client.
func (h *HealthCheck) Check(ctx context.Context) ports.HealthStatus {
	status := ports.HealthStatus{Name: "redis", Target: h.client.Options().Addr}
	start := time.Now()
	err := h.client.Ping(ctx).Err()
	status.Latency = time.Since(start)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Healthy = true
	return status
}
