package postgres

import (
	"errors"
	"testing"

	"wallet-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, domain.ErrSerializationConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, domain.ErrSerializationConflict},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, domain.ErrSerializationConflict},
		{"balance check", &pgconn.PgError{Code: "23514", ConstraintName: "wallets_balance_non_negative"}, domain.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("op", tt.err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassify_PassesThroughOtherErrors(t *testing.T) {
	other := &pgconn.PgError{Code: "23514", ConstraintName: "transaction_histories_amount_positive"}
	err := classify("insert", other)
	assert.False(t, errors.Is(err, domain.ErrInsufficientFunds))
	assert.False(t, errors.Is(err, domain.ErrSerializationConflict))
	assert.Contains(t, err.Error(), "insert")

	plain := errors.New("connection reset")
	assert.ErrorIs(t, classify("begin tx", plain), plain)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(errors.New("other")))
}
