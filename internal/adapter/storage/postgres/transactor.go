package postgres

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.Transactor on a pgx pool.
type Transactor struct {
	pool      Pool
	isoLevel  pgx.TxIsoLevel
	wallets   *WalletRepo
	histories *TransactionHistoryRepo
}

// NewTransactor creates a Transactor opening transactions at isoLevel.
func NewTransactor(pool Pool, isoLevel pgx.TxIsoLevel) *Transactor {
	return &Transactor{
		pool:      pool,
		isoLevel:  isoLevel,
		wallets:   NewWalletRepo(pool),
		histories: NewTransactionHistoryRepo(pool),
	}
}

// WithTransaction runs fn in one database transaction, committing only if fn succeeds.
func (t *Transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	dbTx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: t.isoLevel})
	if err != nil {
		return classify("begin tx", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// Rollback on a cancelled ctx still releases the connection.
		_ = dbTx.Rollback(context.WithoutCancel(ctx))
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	if err := fn(ctx, &ledgerTx{tx: dbTx, wallets: t.wallets, histories: t.histories}); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return classify("commit tx", err)
	}
	committed = true
	return nil
}

// ledgerTx binds the repositories' locking methods to one pgx.Tx.
type ledgerTx struct {
	tx        pgx.Tx
	wallets   *WalletRepo
	histories *TransactionHistoryRepo
}

func (l *ledgerTx) LockWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	w, err := l.wallets.GetByIDForUpdate(ctx, l.tx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("lock wallet %s: %w", id, domain.ErrWalletNotFound)
	}
	return w, nil
}

func (l *ledgerTx) InsertWallet(ctx context.Context, w *domain.Wallet) error {
	return l.wallets.Create(ctx, l.tx, w)
}

func (l *ledgerTx) SaveWallet(ctx context.Context, w *domain.Wallet) error {
	return l.wallets.UpdateBalance(ctx, l.tx, w)
}

func (l *ledgerTx) AppendTransaction(ctx context.Context, rec *domain.TransactionHistory) error {
	return l.histories.Create(ctx, l.tx, rec)
}
