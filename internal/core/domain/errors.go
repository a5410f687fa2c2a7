package domain

import "errors"

// Store-level sentinels. Adapters wrap these; the transfer engine maps them to apperror kinds.
var (
	ErrWalletNotFound        = errors.New("wallet not found")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrSerializationConflict = errors.New("serialization conflict")
	ErrIdempotencyKeyMissing = errors.New("idempotency key not found")
)
