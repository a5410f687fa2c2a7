package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an AppError for callers that branch on failure type.
type Kind string

const (
	KindInvalidAmount         Kind = "invalid_amount"
	KindNotFound              Kind = "not_found"
	KindInsufficientFunds     Kind = "insufficient_funds"
	KindSameWallet            Kind = "same_wallet"
	KindConflict              Kind = "conflict"
	KindSerializationConflict Kind = "serialization_conflict"
	KindValidation            Kind = "validation"
	KindInternal              Kind = "internal"
)

// AppError is a structured error returned at the engine boundary.
type AppError struct {
	Code    string `json:"error_code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError of the same Kind, so errors.Is(err, ErrNotFound("")) works.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a new AppError.
func New(code string, kind Kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, kind Kind, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the Kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// ---- Wallet Business Logic (WLT) ----

func ErrInvalidAmount() *AppError {
	return New("WLT_001", KindInvalidAmount, "Invalid amount")
}

func ErrNotFound(entity string) *AppError {
	return New("WLT_002", KindNotFound, fmt.Sprintf("%s not found", entity))
}

func ErrInsufficientFunds() *AppError {
	return New("WLT_003", KindInsufficientFunds, "Insufficient balance in wallet")
}

func ErrSameWallet() *AppError {
	return New("WLT_004", KindSameWallet, "Sender and receiver wallet must differ")
}

// Validation returns a WLT_005 input validation error.
func Validation(message string) *AppError {
	return New("WLT_005", KindValidation, message)
}

// ---- Idempotency (IDEM) ----

func ErrRequestInProgress() *AppError {
	return New("IDEM_001", KindConflict, "A request with this idempotency key is already being processed")
}

func ErrIdempotencyKeyReused() *AppError {
	return New("IDEM_002", KindConflict, "Idempotency key was already used for a different request")
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", KindInternal, "Internal server error", err)
}

// ErrSerializationConflict is returned once the retry budget for a store conflict is spent.
func ErrSerializationConflict(err error) *AppError {
	return Wrap("SYS_002", KindSerializationConflict, "Concurrent update conflict, retries exhausted", err)
}
