package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWallet(t *testing.T, s *Store, balance string) *domain.Wallet {
	t.Helper()
	w := domain.NewWallet("USD", decimal.RequireFromString(balance), time.Now().UTC())
	err := s.WithTransaction(context.Background(), func(ctx context.Context, tx ports.LedgerTx) error {
		return tx.InsertWallet(ctx, w)
	})
	require.NoError(t, err)
	return w
}

func TestStore_CommitAppliesWrites(t *testing.T) {
	s := NewStore()
	w := seedWallet(t, s, "100")
	ctx := context.Background()

	err := s.WithTransaction(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		locked, err := tx.LockWallet(ctx, w.ID)
		if err != nil {
			return err
		}
		locked.Credit(decimal.RequireFromString("50"), time.Now())
		if err := tx.SaveWallet(ctx, locked); err != nil {
			return err
		}
		return tx.AppendTransaction(ctx, domain.NewDeposit(w.ID, decimal.RequireFromString("50"), time.Now()))
	})
	require.NoError(t, err)

	got, err := s.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("150").Equal(got.Balance))
	assert.Equal(t, int64(2), got.Version)

	entries, err := s.ListByWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_RollbackDiscardsWrites(t *testing.T) {
	s := NewStore()
	w := seedWallet(t, s, "100")
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTransaction(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		locked, err := tx.LockWallet(ctx, w.ID)
		if err != nil {
			return err
		}
		require.NoError(t, locked.Debit(decimal.RequireFromString("100"), time.Now()))
		require.NoError(t, tx.SaveWallet(ctx, locked))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := s.GetByID(ctx, w.ID)
	assert.True(t, decimal.RequireFromString("100").Equal(got.Balance))

	// the row lock was released by the rollback
	lockCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	err = s.WithTransaction(lockCtx, func(ctx context.Context, tx ports.LedgerTx) error {
		_, err := tx.LockWallet(ctx, w.ID)
		return err
	})
	assert.NoError(t, err)
}

func TestStore_LockWallet_NotFound(t *testing.T) {
	s := NewStore()
	err := s.WithTransaction(context.Background(), func(ctx context.Context, tx ports.LedgerTx) error {
		_, err := tx.LockWallet(ctx, uuid.New())
		return err
	})
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestStore_LockBlocksUntilCommit(t *testing.T) {
	s := NewStore()
	w := seedWallet(t, s, "100")
	ctx := context.Background()

	locked := make(chan struct{})
	proceed := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.WithTransaction(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
			held, err := tx.LockWallet(ctx, w.ID)
			if err != nil {
				return err
			}
			close(locked)
			<-proceed
			held.Credit(decimal.RequireFromString("1"), time.Now())
			return tx.SaveWallet(ctx, held)
		})
	}()
	<-locked

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := s.WithTransaction(waitCtx, func(ctx context.Context, tx ports.LedgerTx) error {
		_, err := tx.LockWallet(ctx, w.ID)
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded, "second locker must wait for the holder")

	close(proceed)
	wg.Wait()

	err = s.WithTransaction(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		held, err := tx.LockWallet(ctx, w.ID)
		if err != nil {
			return err
		}
		assert.True(t, decimal.RequireFromString("101").Equal(held.Balance), "lock holder sees committed state")
		return nil
	})
	require.NoError(t, err)
}

func TestStore_SaveWallet_StaleVersion(t *testing.T) {
	s := NewStore()
	w := seedWallet(t, s, "100")

	err := s.WithTransaction(context.Background(), func(ctx context.Context, tx ports.LedgerTx) error {
		held, err := tx.LockWallet(ctx, w.ID)
		if err != nil {
			return err
		}
		held.Version = 7
		return tx.SaveWallet(ctx, held)
	})
	assert.ErrorIs(t, err, domain.ErrSerializationConflict)
}

func TestStore_SaveWallet_RejectsNegativeBalance(t *testing.T) {
	s := NewStore()
	w := seedWallet(t, s, "10")

	err := s.WithTransaction(context.Background(), func(ctx context.Context, tx ports.LedgerTx) error {
		held, err := tx.LockWallet(ctx, w.ID)
		if err != nil {
			return err
		}
		held.Balance = decimal.RequireFromString("-1")
		return tx.SaveWallet(ctx, held)
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestStore_CommitHookAbortsCommit(t *testing.T) {
	s := NewStore(WithCommitHook(func() error { return domain.ErrSerializationConflict }))
	w := domain.NewWallet("USD", decimal.Zero, time.Now())

	err := s.WithTransaction(context.Background(), func(ctx context.Context, tx ports.LedgerTx) error {
		return tx.InsertWallet(ctx, w)
	})
	assert.ErrorIs(t, err, domain.ErrSerializationConflict)

	got, _ := s.GetByID(context.Background(), w.ID)
	assert.Nil(t, got)
}

func TestStore_List_Paginates(t *testing.T) {
	s := NewStore()
	for i := 0; i < 5; i++ {
		seedWallet(t, s, "1")
	}

	page, err := s.List(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = s.List(context.Background(), 2, 4)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, err = s.List(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestStore_IdempotencyLifecycle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()
	k := &domain.IdempotencyKey{Key: "k1", Status: domain.IdempotencyProcessing, CreatedAt: now, UpdatedAt: now}

	created, err := s.Insert(ctx, k)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Insert(ctx, k)
	require.NoError(t, err)
	assert.False(t, created, "second insert of the same key is not a hard error")

	require.NoError(t, s.Finish(ctx, "k1", domain.IdempotencyFailed, nil, now))
	assert.ErrorIs(t, s.Finish(ctx, "k1", domain.IdempotencyCompleted, nil, now), domain.ErrIdempotencyKeyMissing)

	observed, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	ok, err := s.Reclaim(ctx, observed, now.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Reclaim(ctx, observed, now.Add(2*time.Second))
	require.NoError(t, err)
	assert.False(t, ok, "reclaim is compare-and-set on the observed state")

	require.NoError(t, s.Finish(ctx, "k1", domain.IdempotencyCompleted, []byte(`{}`), now))
	got, _ := s.Get(ctx, "k1")
	assert.Equal(t, domain.IdempotencyCompleted, got.Status)
}
