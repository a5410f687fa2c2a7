package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletCache is the side cache for wallet snapshots and history lists.
// Writes carry the generation observed before the store read; a write whose
// generation is no longer current is dropped. A wallet snapshot older than one
// already installed is dropped too, even across invalidations.
type WalletCache interface {
	GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) // nil, nil on miss
	GetTransactions(ctx context.Context, id uuid.UUID) ([]domain.TransactionHistory, bool, error)
	Generation(ctx context.Context, id uuid.UUID) (int64, error)
	SetWallet(ctx context.Context, w *domain.Wallet, gen int64) error
	SetTransactions(ctx context.Context, id uuid.UUID, entries []domain.TransactionHistory, gen int64) error
	// Invalidate deletes both entries of every id and advances their generations.
	Invalidate(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]int64, error)
}

// IdempotencyCache is the Redis-layer replay cache for completed responses (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Clock supplies timestamps.
type Clock interface {
	Now() time.Time
}

// --- Service Ports (Business Logic) ---

// WalletService is the transfer engine.
type WalletService interface {
	CreateWallet(ctx context.Context, req CreateWalletRequest) (*domain.Wallet, error)
	FundWallet(ctx context.Context, req FundWalletRequest) (*FundResult, error)
	TransferFund(ctx context.Context, req TransferRequest) (*domain.TransactionHistory, error)
	GetWallet(ctx context.Context, id uuid.UUID) (*WalletDetails, error)
	GetWalletTransactionHistories(ctx context.Context, id uuid.UUID) ([]domain.TransactionView, error)
	ListWallets(ctx context.Context, limit, offset int) ([]domain.Wallet, error)
	AuditWallet(ctx context.Context, id uuid.UUID) (*domain.AuditReport, error)
}

// CreateWalletRequest holds validated input for wallet creation.
type CreateWalletRequest struct {
	Amount   decimal.Decimal
	Currency string // empty = configured default
}

type FundWalletRequest struct {
	WalletID uuid.UUID
	Amount   decimal.Decimal
}

type TransferRequest struct {
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Amount     decimal.Decimal
}

// FundResult is the wallet after funding plus the deposit entry written.
type FundResult struct {
	Wallet      *domain.Wallet             `json:"wallet"`
	Transaction *domain.TransactionHistory `json:"transaction"`
}

// WalletDetails is a wallet with its history.
type WalletDetails struct {
	Wallet       *domain.Wallet           `json:"wallet"`
	Transactions []domain.TransactionView `json:"transactions"`
}

// IdempotencyGuard implements the claim/complete/fail protocol.
// A key is bound to the fingerprint of the request that first claimed it;
// claiming it with another fingerprint fails.
type IdempotencyGuard interface {
	Claim(ctx context.Context, key, fingerprint string) (*ClaimResult, error)
	Complete(ctx context.Context, key, fingerprint string, body []byte) error
	Fail(ctx context.Context, key string, body []byte) error
}

// ClaimResult reports whether the caller owns the key.
// When Fresh is false, Status and Body describe the existing record.
type ClaimResult struct {
	Fresh  bool
	Status domain.IdempotencyStatus
	Body   []byte
}
