package domain

import (
	"bytes"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is a single-currency balance holder.
// Balance is never negative; Version increments on every persisted mutation.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewWallet builds an unsaved wallet holding the initial amount.
func NewWallet(currency string, initial decimal.Decimal, now time.Time) *Wallet {
	return &Wallet{
		ID:        uuid.New(),
		Currency:  currency,
		Balance:   initial,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Credit adds amount to the balance.
func (w *Wallet) Credit(amount decimal.Decimal, now time.Time) {
	w.Balance = w.Balance.Add(amount)
	w.UpdatedAt = now
}

// Debit removes amount from the balance, refusing to go below zero.
func (w *Wallet) Debit(amount decimal.Decimal, now time.Time) error {
	if w.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	w.Balance = w.Balance.Sub(amount)
	w.UpdatedAt = now
	return nil
}

// LockOrder returns the two ids in the order their row locks must be taken.
// The lower id always comes first, regardless of which side is the sender.
func LockOrder(a, b uuid.UUID) (first, second uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

// ValidAmount reports whether amount is usable for a fund or transfer.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive()
}
