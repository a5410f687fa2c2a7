package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// Transactor runs fn inside one atomic store transaction.
// fn's writes become visible only if fn returns nil and the commit succeeds;
// any error, including a panic, rolls everything back.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// LedgerTx is the write side of the ledger, valid only inside WithTransaction.
type LedgerTx interface {
	// LockWallet takes an exclusive row lock held until the transaction ends.
	// Returns domain.ErrWalletNotFound if the wallet does not exist.
	LockWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	InsertWallet(ctx context.Context, w *domain.Wallet) error
	// SaveWallet persists balance and bumps Version. A version mismatch yields
	// domain.ErrSerializationConflict.
	SaveWallet(ctx context.Context, w *domain.Wallet) error
	AppendTransaction(ctx context.Context, rec *domain.TransactionHistory) error
}

// WalletRepository is the non-locking read side for wallets.
type WalletRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) // nil, nil if absent
	List(ctx context.Context, limit, offset int) ([]domain.Wallet, error)
}

// TransactionHistoryRepository reads ledger entries.
type TransactionHistoryRepository interface {
	// ListByWallet returns entries where the wallet is sender or receiver, oldest first.
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.TransactionHistory, error)
}

// IdempotencyRepository is the durable record of idempotency keys.
type IdempotencyRepository interface {
	// Insert creates the key if absent. Returns false when the key already exists.
	Insert(ctx context.Context, key *domain.IdempotencyKey) (bool, error)
	Get(ctx context.Context, key string) (*domain.IdempotencyKey, error) // nil, nil if absent
	// Reclaim moves a key back to processing if it is still in the observed state.
	// Returns false if another caller changed it first.
	Reclaim(ctx context.Context, observed *domain.IdempotencyKey, now time.Time) (bool, error)
	// Finish moves a processing key to a terminal status.
	// Returns domain.ErrIdempotencyKeyMissing if no processing key matches.
	Finish(ctx context.Context, key string, status domain.IdempotencyStatus, body []byte, now time.Time) error
}
