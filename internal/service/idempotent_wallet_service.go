package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// IdempotentWalletService runs the mutating engine operations under the
// idempotency guard. Results are decoded from the stored bytes on the first
// call and on every replay alike.
type IdempotentWalletService struct {
	wallets ports.WalletService
	guard   ports.IdempotencyGuard
	log     zerolog.Logger
}

// NewIdempotentWalletService creates a new IdempotentWalletService.
func NewIdempotentWalletService(wallets ports.WalletService, guard ports.IdempotencyGuard, log zerolog.Logger) *IdempotentWalletService {
	return &IdempotentWalletService{wallets: wallets, guard: guard, log: log}
}

// CreateWallet runs WalletService.CreateWallet at most once per key.
func (s *IdempotentWalletService) CreateWallet(ctx context.Context, key string, req ports.CreateWalletRequest) (*domain.Wallet, []byte, error) {
	return runGuarded(ctx, s, key, opCreateWallet, req, func(ctx context.Context) (*domain.Wallet, error) {
		return s.wallets.CreateWallet(ctx, req)
	})
}

// FundWallet runs WalletService.FundWallet at most once per key.
func (s *IdempotentWalletService) FundWallet(ctx context.Context, key string, req ports.FundWalletRequest) (*ports.FundResult, []byte, error) {
	return runGuarded(ctx, s, key, opFundWallet, req, func(ctx context.Context) (*ports.FundResult, error) {
		return s.wallets.FundWallet(ctx, req)
	})
}

// TransferFund runs WalletService.TransferFund at most once per key.
func (s *IdempotentWalletService) TransferFund(ctx context.Context, key string, req ports.TransferRequest) (*domain.TransactionHistory, []byte, error) {
	return runGuarded(ctx, s, key, opTransferFund, req, func(ctx context.Context) (*domain.TransactionHistory, error) {
		return s.wallets.TransferFund(ctx, req)
	})
}

// Execute is the claim/run/complete-or-fail protocol. An empty key runs fn unguarded.
// fingerprint identifies the request; replays require the same one.
func (s *IdempotentWalletService) Execute(ctx context.Context, key, fingerprint string, fn func(ctx context.Context) (any, error)) ([]byte, error) {
	if key == "" {
		result, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return marshalResult(result)
	}

	claim, err := s.guard.Claim(ctx, key, fingerprint)
	if err != nil {
		return nil, err
	}
	if !claim.Fresh {
		s.log.Debug().Str("key", key).Msg("replaying stored response")
		return claim.Body, nil
	}

	// The outcome is recorded even if ctx was cancelled mid-operation.
	settle := context.WithoutCancel(ctx)

	result, err := fn(ctx)
	if err != nil {
		s.fail(settle, key, err)
		return nil, err
	}

	body, err := marshalResult(result)
	if err != nil {
		s.fail(settle, key, err)
		return nil, err
	}

	if err := s.guard.Complete(settle, key, fingerprint, body); err != nil {
		// The effect is committed; the key stays processing until it goes stale.
		s.log.Error().Err(err).Str("key", key).Msg("failed to record completed idempotency key")
	}
	return body, nil
}

func (s *IdempotentWalletService) fail(ctx context.Context, key string, cause error) {
	var appErr *apperror.AppError
	if !errors.As(cause, &appErr) {
		appErr = apperror.InternalError(cause)
	}
	body, _ := json.Marshal(appErr)
	if err := s.guard.Fail(ctx, key, body); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to record failed idempotency key")
	}
}

func runGuarded[T any](
	ctx context.Context,
	s *IdempotentWalletService,
	key, op string,
	req any,
	fn func(ctx context.Context) (T, error),
) (T, []byte, error) {
	var zero T
	fingerprint, err := requestFingerprint(op, req)
	if err != nil {
		return zero, nil, err
	}
	body, err := s.Execute(ctx, key, fingerprint, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, nil, err
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return zero, nil, apperror.InternalError(fmt.Errorf("decode stored response: %w", err))
	}
	return out, body, nil
}

// Operation names bound into request fingerprints.
const (
	opCreateWallet = "create_wallet"
	opFundWallet   = "fund_wallet"
	opTransferFund = "transfer_fund"
)

// requestFingerprint is op plus a SHA-256 digest of the JSON-encoded request.
func requestFingerprint(op string, req any) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("fingerprint request: %w", err))
	}
	h := sha256.New()
	h.Write([]byte(op))
	h.Write([]byte{'\n'})
	h.Write(raw)
	return op + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

func marshalResult(result any) ([]byte, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	return body, nil
}
