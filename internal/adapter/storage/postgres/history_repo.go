package postgres

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionHistoryRepo implements ports.TransactionHistoryRepository.
type TransactionHistoryRepo struct {
	pool Pool
}

// NewTransactionHistoryRepo creates a new TransactionHistoryRepo.
func NewTransactionHistoryRepo(pool Pool) *TransactionHistoryRepo {
	return &TransactionHistoryRepo{pool: pool}
}

// Create appends a ledger entry within a database transaction.
func (r *TransactionHistoryRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.TransactionHistory) error {
	query := `INSERT INTO transaction_histories
		(id, sender_wallet_id, receiver_wallet_id, type, amount, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.SenderWalletID, t.ReceiverWalletID, string(t.Type),
		t.Amount.String(), t.Description, t.CreatedAt,
	)
	if err != nil {
		return classify("insert transaction history", err)
	}
	return nil
}

// ListByWallet returns every entry where the wallet is sender or receiver, oldest first.
func (r *TransactionHistoryRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.TransactionHistory, error) {
	query := `SELECT id, sender_wallet_id, receiver_wallet_id, type, amount::text, description, created_at
		FROM transaction_histories
		WHERE sender_wallet_id = $1 OR receiver_wallet_id = $1
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("list transaction histories: %w", err)
	}
	defer rows.Close()

	entries := []domain.TransactionHistory{}
	for rows.Next() {
		var (
			t      domain.TransactionHistory
			txType string
			amount string
		)
		if err := rows.Scan(&t.ID, &t.SenderWalletID, &t.ReceiverWalletID, &txType,
			&amount, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction history: %w", err)
		}
		t.Type = domain.TransactionType(txType)
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		entries = append(entries, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction histories: %w", err)
	}
	return entries, nil
}
