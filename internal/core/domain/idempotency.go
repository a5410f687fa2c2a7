package domain

import (
	"encoding/json"
	"time"
)

// IdempotencyStatus is the lifecycle state of a client-supplied key.
type IdempotencyStatus string

const (
	IdempotencyProcessing IdempotencyStatus = "processing"
	IdempotencyCompleted  IdempotencyStatus = "completed"
	IdempotencyFailed     IdempotencyStatus = "failed"
)

// IdempotencyKey tracks one logical request across client retries.
type IdempotencyKey struct {
	Key          string            `json:"key"`
	Status       IdempotencyStatus `json:"status"`
	Fingerprint  string            `json:"fingerprint"` // operation name plus request digest
	ResponseBody json.RawMessage   `json:"response_body,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// IsTerminal returns true once the guarded operation has finished.
func (k *IdempotencyKey) IsTerminal() bool {
	return k.Status == IdempotencyCompleted || k.Status == IdempotencyFailed
}

// IsStale reports whether a processing key has been held longer than staleAfter.
// A zero staleAfter disables reclamation.
func (k *IdempotencyKey) IsStale(now time.Time, staleAfter time.Duration) bool {
	if k.Status != IdempotencyProcessing || staleAfter <= 0 {
		return false
	}
	return now.Sub(k.UpdatedAt) >= staleAfter
}

// Reclaimable reports whether a new claim may take over this key.
func (k *IdempotencyKey) Reclaimable(now time.Time, staleAfter time.Duration) bool {
	return k.Status == IdempotencyFailed || k.IsStale(now, staleAfter)
}
