package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestWallet_Debit(t *testing.T) {
	tests := []struct {
		name    string
		balance string
		amount  string
		want    string
		wantErr error
	}{
		{"partial", "100", "40", "60", nil},
		{"exact", "90.50", "90.50", "0", nil},
		{"overdraw", "90", "1000", "90", ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Wallet{Balance: dec(tt.balance)}
			err := w.Debit(dec(tt.amount), time.Now())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, dec(tt.want).Equal(w.Balance), "balance = %s", w.Balance)
		})
	}
}

func TestWallet_Credit(t *testing.T) {
	w := NewWallet("USD", dec("100"), time.Now())
	w.Credit(dec("50.25"), time.Now())
	assert.True(t, dec("150.25").Equal(w.Balance))
	assert.Equal(t, int64(1), w.Version, "credit alone must not bump version")
}

func TestLockOrder_IndependentOfDirection(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("ffffffff-0000-0000-0000-000000000001")

	f1, s1 := LockOrder(a, b)
	f2, s2 := LockOrder(b, a)

	assert.Equal(t, a, f1)
	assert.Equal(t, b, s1)
	assert.Equal(t, f1, f2)
	assert.Equal(t, s1, s2)
}

func TestValidAmount(t *testing.T) {
	tests := []struct {
		amount string
		want   bool
	}{
		{"0.01", true},
		{"0", false},
		{"-5", false},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidAmount(dec(tt.amount)))
		})
	}
}

func TestTransactionHistory_SignedAmountFor(t *testing.T) {
	sender, receiver, other := uuid.New(), uuid.New(), uuid.New()
	tr := NewTransfer(sender, receiver, dec("60"), time.Now())
	dep := NewDeposit(receiver, dec("50"), time.Now())

	assert.True(t, dec("-60").Equal(tr.SignedAmountFor(sender)))
	assert.True(t, dec("60").Equal(tr.SignedAmountFor(receiver)))
	assert.True(t, dec("60").Equal(tr.SignedAmountFor(other)))
	assert.True(t, dec("50").Equal(dep.SignedAmountFor(receiver)))
	assert.Nil(t, dep.SenderWalletID)
	assert.Equal(t, TransactionTypeDeposit, dep.Type)
	assert.Equal(t, TransactionTypeTransfer, tr.Type)
}

func TestNewInitialDeposit_Description(t *testing.T) {
	w := NewWallet("USD", dec("100"), time.Now())
	rec := NewInitialDeposit(w, w.Balance, time.Now())

	assert.Contains(t, rec.Description, "Initial wallet creation with USD100.00")
	assert.Contains(t, rec.Description, w.ID.String())
	require.NotNil(t, rec.ReceiverWalletID)
	assert.Equal(t, w.ID, *rec.ReceiverWalletID)
}

func TestViewFor(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	entries := []TransactionHistory{
		*NewDeposit(a, dec("100"), time.Now()),
		*NewTransfer(a, b, dec("60"), time.Now()),
	}

	views := ViewFor(a, entries)
	require.Len(t, views, 2)
	assert.True(t, dec("100").Equal(views[0].DisplayAmount))
	assert.True(t, dec("-60").Equal(views[1].DisplayAmount))
	assert.True(t, dec("60").Equal(views[1].Amount), "stored amount stays positive")
}

func TestIdempotencyKey_Reclaimable(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		status  IdempotencyStatus
		age     time.Duration
		stale   time.Duration
		want    bool
	}{
		{"fresh processing", IdempotencyProcessing, time.Second, time.Minute, false},
		{"stale processing", IdempotencyProcessing, 2 * time.Minute, time.Minute, true},
		{"staleness disabled", IdempotencyProcessing, time.Hour, 0, false},
		{"failed", IdempotencyFailed, time.Second, time.Minute, true},
		{"completed", IdempotencyCompleted, time.Hour, time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := &IdempotencyKey{Status: tt.status, UpdatedAt: now.Add(-tt.age)}
			assert.Equal(t, tt.want, k.Reclaimable(now, tt.stale))
		})
	}
}

func TestReconcile(t *testing.T) {
	w := &Wallet{ID: uuid.New(), Balance: dec("90")}
	other := uuid.New()
	entries := []TransactionHistory{
		*NewDeposit(w.ID, dec("100"), time.Now()),
		*NewDeposit(w.ID, dec("50"), time.Now()),
		*NewTransfer(w.ID, other, dec("60"), time.Now()),
	}

	r := Reconcile(w, entries)
	assert.True(t, r.Balanced)
	assert.True(t, dec("150").Equal(r.Credits))
	assert.True(t, dec("60").Equal(r.Debits))
	assert.Equal(t, 3, r.Entries)

	w.Balance = dec("91")
	assert.False(t, Reconcile(w, entries).Balanced)
}

func TestCacheKeys_Namespaced(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "wallet:"+id.String(), WalletCacheKey(id))
	assert.Equal(t, "wallet:transactions:"+id.String(), TransactionsCacheKey(id))
	assert.NotEqual(t, WalletCacheKey(id), TransactionsCacheKey(id))
}
