package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StressResult summarises a RunOppositeTransfers run.
type StressResult struct {
	Submitted    int                   `json:"submitted"`
	Succeeded    int64                 `json:"succeeded"`
	Insufficient int64                 `json:"insufficient_funds"`
	Failed       int64                 `json:"failed"`
	Elapsed      time.Duration         `json:"elapsed"`
	Errors       map[apperror.Kind]int `json:"errors,omitempty"`
}

// TransferDriver pushes concurrent transfers through a bounded worker pool.
type TransferDriver struct {
	wallets ports.WalletService
	pool    *ants.Pool
	log     zerolog.Logger
}

// NewTransferDriver creates a TransferDriver with size workers.
func NewTransferDriver(wallets ports.WalletService, size int, log zerolog.Logger) (*TransferDriver, error) {
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &TransferDriver{wallets: wallets, pool: pool, log: log}, nil
}

// RunOppositeTransfers submits n transfers of amount a→b and n transfers b→a,
// interleaved, and waits for all of them.
func (d *TransferDriver) RunOppositeTransfers(ctx context.Context, a, b uuid.UUID, n int, amount decimal.Decimal) (*StressResult, error) {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded atomic.Int64
		short     atomic.Int64
		failed    atomic.Int64
	)
	res := &StressResult{Errors: make(map[apperror.Kind]int)}
	start := time.Now()

	for i := 0; i < n; i++ {
		for _, req := range []ports.TransferRequest{
			{SenderID: a, ReceiverID: b, Amount: amount},
			{SenderID: b, ReceiverID: a, Amount: amount},
		} {
			wg.Add(1)
			err := d.pool.Submit(func() {
				defer wg.Done()
				_, err := d.wallets.TransferFund(ctx, req)
				switch {
				case err == nil:
					succeeded.Add(1)
					return
				case apperror.KindOf(err) == apperror.KindInsufficientFunds:
					short.Add(1)
				default:
					failed.Add(1)
				}
				mu.Lock()
				res.Errors[apperror.KindOf(err)]++
				mu.Unlock()
			})
			if err != nil {
				wg.Done()
				wg.Wait()
				return nil, fmt.Errorf("submit transfer: %w", err)
			}
			res.Submitted++
		}
	}
	wg.Wait()

	res.Succeeded = succeeded.Load()
	res.Insufficient = short.Load()
	res.Failed = failed.Load()
	res.Elapsed = time.Since(start)

	d.log.Info().
		Int("submitted", res.Submitted).
		Int64("succeeded", res.Succeeded).
		Int64("insufficient_funds", res.Insufficient).
		Int64("failed", res.Failed).
		Dur("elapsed", res.Elapsed).
		Msg("transfer run finished")

	return res, nil
}

// Release stops the pool's workers.
func (d *TransferDriver) Release() {
	d.pool.Release()
}
