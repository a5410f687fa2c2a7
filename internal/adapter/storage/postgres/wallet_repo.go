package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const walletColumns = `id, currency, balance::text, version, created_at, updated_at`

// WalletRepo implements ports.WalletRepository and the wallet half of ports.LedgerTx.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet within a database transaction.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, currency, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.Currency, w.Balance.String(), w.Version, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return classify("insert wallet", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return w, nil
}

// List returns wallets ordered by creation time.
func (r *WalletRepo) List(ctx context.Context, limit, offset int) ([]domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets ORDER BY created_at, id LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallets: %w", err)
	}
	return wallets, nil
}

// GetByIDForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction. Returns nil, nil if absent.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get wallet for update by id", err)
	}
	return w, nil
}

// UpdateBalance persists w.Balance if the stored version still matches w.Version,
// then advances w.Version.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `UPDATE wallets SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`

	tag, err := tx.Exec(ctx, query, w.Balance.String(), w.UpdatedAt, w.ID, w.Version)
	if err != nil {
		return classify("update wallet balance", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update wallet %s at version %d: %w", w.ID, w.Version, domain.ErrSerializationConflict)
	}
	w.Version++
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		w       domain.Wallet
		balance string
	)
	if err := row.Scan(&w.ID, &w.Currency, &balance, &w.Version, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	w.Balance = amount
	return &w, nil
}
