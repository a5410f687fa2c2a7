package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeTransfer TransactionType = "transfer"
)

// TransactionHistory is an immutable ledger entry.
// Deposits have no sender; transfers reference both wallets.
type TransactionHistory struct {
	ID               uuid.UUID       `json:"id"`
	SenderWalletID   *uuid.UUID      `json:"sender_wallet_id"`
	ReceiverWalletID *uuid.UUID      `json:"receiver_wallet_id"`
	Type             TransactionType `json:"type"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description"`
	CreatedAt        time.Time       `json:"created_at"`
}

// NewInitialDeposit records the opening balance of a freshly created wallet.
func NewInitialDeposit(w *Wallet, amount decimal.Decimal, now time.Time) *TransactionHistory {
	return newDeposit(w.ID, amount,
		fmt.Sprintf("Initial wallet creation with %s%s to wallet ID: %s", w.Currency, amount.StringFixed(2), w.ID), now)
}

// NewDeposit records a funding of walletID.
func NewDeposit(walletID uuid.UUID, amount decimal.Decimal, now time.Time) *TransactionHistory {
	return newDeposit(walletID, amount,
		fmt.Sprintf("Deposited %s into wallet %s", amount.StringFixed(2), walletID), now)
}

func newDeposit(walletID uuid.UUID, amount decimal.Decimal, description string, now time.Time) *TransactionHistory {
	receiver := walletID
	return &TransactionHistory{
		ID:               uuid.New(),
		ReceiverWalletID: &receiver,
		Type:             TransactionTypeDeposit,
		Amount:           amount,
		Description:      description,
		CreatedAt:        now,
	}
}

// NewTransfer records a movement from sender to receiver.
func NewTransfer(sender, receiver uuid.UUID, amount decimal.Decimal, now time.Time) *TransactionHistory {
	return &TransactionHistory{
		ID:               uuid.New(),
		SenderWalletID:   &sender,
		ReceiverWalletID: &receiver,
		Type:             TransactionTypeTransfer,
		Amount:           amount,
		Description: fmt.Sprintf("Transfer: %s from sender wallet ID: %s to receiver wallet ID: %s",
			amount.StringFixed(2), sender, receiver),
		CreatedAt: now,
	}
}

// IsSender reports whether walletID is the debited side of this entry.
func (t *TransactionHistory) IsSender(walletID uuid.UUID) bool {
	return t.SenderWalletID != nil && *t.SenderWalletID == walletID
}

// SignedAmountFor is the effect of this entry on walletID's balance.
func (t *TransactionHistory) SignedAmountFor(walletID uuid.UUID) decimal.Decimal {
	if t.IsSender(walletID) {
		return t.Amount.Neg()
	}
	return t.Amount
}

// TransactionView is a history entry as seen from one wallet.
type TransactionView struct {
	TransactionHistory
	DisplayAmount decimal.Decimal `json:"display_amount"`
}

// ViewFor annotates entries with their display amount relative to walletID.
func ViewFor(walletID uuid.UUID, entries []TransactionHistory) []TransactionView {
	views := make([]TransactionView, 0, len(entries))
	for _, e := range entries {
		views = append(views, TransactionView{
			TransactionHistory: e,
			DisplayAmount:      e.SignedAmountFor(walletID),
		})
	}
	return views
}
