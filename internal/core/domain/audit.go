package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuditReport compares a wallet's stored balance with the sum of its ledger entries.
type AuditReport struct {
	WalletID  uuid.UUID       `json:"wallet_id"`
	Balance   decimal.Decimal `json:"balance"`
	LedgerSum decimal.Decimal `json:"ledger_sum"`
	Credits   decimal.Decimal `json:"credits"`
	Debits    decimal.Decimal `json:"debits"`
	Entries   int             `json:"entries"`
	Balanced  bool            `json:"balanced"`
}

// Reconcile folds entries into an AuditReport for w.
func Reconcile(w *Wallet, entries []TransactionHistory) *AuditReport {
	r := &AuditReport{
		WalletID: w.ID,
		Balance:  w.Balance,
		Credits:  decimal.Zero,
		Debits:   decimal.Zero,
		Entries:  len(entries),
	}
	for i := range entries {
		if entries[i].IsSender(w.ID) {
			r.Debits = r.Debits.Add(entries[i].Amount)
		} else {
			r.Credits = r.Credits.Add(entries[i].Amount)
		}
	}
	r.LedgerSum = r.Credits.Sub(r.Debits)
	r.Balanced = r.LedgerSum.Equal(r.Balance)
	return r
}
