package ports

import (
	"context"
	"time"
)

// HealthStatus is one dependency's answer to a health check.
type HealthStatus struct {
	Name    string        `json:"name"`
	Target  string        `json:"target"` // host:port the adapter talks to, no credentials
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency_ns"`
	Error   string        `json:"error,omitempty"`
}

// HealthChecker reports whether a ledger backend can serve requests.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}
