package postgres

import (
	"context"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyColumnNames() []string {
	return []string{"id", "sender_wallet_id", "receiver_wallet_id", "type", "amount", "description", "created_at"}
}

func TestTransactionHistoryRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionHistoryRepo(mock)
	rec := domain.NewTransfer(uuid.New(), uuid.New(), decimal.RequireFromString("60"), time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transaction_histories").
		WithArgs(rec.ID, rec.SenderWalletID, rec.ReceiverWalletID, "transfer", "60", rec.Description, rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionHistoryRepo_ListByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionHistoryRepo(mock)
	walletID, other := uuid.New(), uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)
	depositID, transferID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT .+ FROM transaction_histories WHERE sender_wallet_id = \\$1 OR receiver_wallet_id = \\$1").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows(historyColumnNames()).
			AddRow(depositID, (*uuid.UUID)(nil), &walletID, "deposit", "100.00", "Deposited", now).
			AddRow(transferID, &walletID, &other, "transfer", "60.00", "Transfer", now.Add(time.Second)))

	entries, err := repo.ListByWallet(context.Background(), walletID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, domain.TransactionTypeDeposit, entries[0].Type)
	assert.Nil(t, entries[0].SenderWalletID)
	assert.True(t, decimal.RequireFromString("100").Equal(entries[0].Amount))

	assert.Equal(t, domain.TransactionTypeTransfer, entries[1].Type)
	require.NotNil(t, entries[1].SenderWalletID)
	assert.Equal(t, walletID, *entries[1].SenderWalletID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionHistoryRepo_ListByWallet_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionHistoryRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM transaction_histories").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(historyColumnNames()))

	entries, err := repo.ListByWallet(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}
