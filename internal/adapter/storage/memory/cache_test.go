package memory

import (
	"context"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletCache_StaleGenerationDropped(t *testing.T) {
	c := NewWalletCache(time.Minute, time.Minute)
	ctx := context.Background()
	w := domain.NewWallet("USD", decimal.RequireFromString("10"), time.Now())

	gen, err := c.Generation(ctx, w.ID)
	require.NoError(t, err)

	_, err = c.Invalidate(ctx, w.ID)
	require.NoError(t, err)

	require.NoError(t, c.SetWallet(ctx, w, gen))
	got, err := c.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	gen, err = c.Generation(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	require.NoError(t, c.SetWallet(ctx, w, gen))
	got, err = c.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, w.Balance.Equal(got.Balance))
}

func TestWalletCache_Expiry(t *testing.T) {
	c := NewWalletCache(time.Second, time.Second)
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()
	w := domain.NewWallet("USD", decimal.Zero, now)

	require.NoError(t, c.SetTransactions(ctx, w.ID, []domain.TransactionHistory{}, 0))
	_, ok, err := c.GetTransactions(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, err = c.GetTransactions(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotencyCache_FirstWriteWins(t *testing.T) {
	c := NewIdempotencyCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte(`{"a":1}`), time.Minute))
	require.NoError(t, c.Set(ctx, "k", []byte(`{"a":2}`), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	missing, err := c.Get(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWalletCache_OlderVersionNeverReplacesNewer(t *testing.T) {
	c := NewWalletCache(time.Minute, time.Minute)
	ctx := context.Background()
	newer := domain.NewWallet("USD", decimal.RequireFromString("120"), time.Now())
	newer.Version = 3
	older := *newer
	older.Version = 2

	gens, err := c.Invalidate(ctx, newer.ID)
	require.NoError(t, err)
	require.NoError(t, c.SetWallet(ctx, newer, gens[newer.ID]))

	gens, err = c.Invalidate(ctx, newer.ID)
	require.NoError(t, err)
	require.NoError(t, c.SetWallet(ctx, &older, gens[newer.ID]))

	got, err := c.GetWallet(ctx, newer.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
