package memory

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// ledgerTx buffers writes and holds row locks until commit or rollback.
type ledgerTx struct {
	store     *Store
	held      map[uuid.UUID]struct{}
	pending   map[uuid.UUID]domain.Wallet
	created   map[uuid.UUID]bool
	histories []domain.TransactionHistory
}

func (t *ledgerTx) LockWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	if w, ok := t.pending[id]; ok {
		return &w, nil
	}
	if _, ok := t.held[id]; !ok {
		l := t.store.rowLock(id)
		select {
		case l <- struct{}{}:
		case <-ctx.Done():
			return nil, fmt.Errorf("lock wallet %s: %w", id, ctx.Err())
		}
		t.held[id] = struct{}{}
		if t.store.onLock != nil {
			t.store.onLock(id)
		}
	}

	t.store.mu.RLock()
	w, ok := t.store.wallets[id]
	t.store.mu.RUnlock()
	if !ok {
		t.unlock(id)
		return nil, fmt.Errorf("lock wallet %s: %w", id, domain.ErrWalletNotFound)
	}
	return &w, nil
}

func (t *ledgerTx) InsertWallet(_ context.Context, w *domain.Wallet) error {
	t.store.mu.RLock()
	_, exists := t.store.wallets[w.ID]
	t.store.mu.RUnlock()
	if exists || t.created[w.ID] {
		return fmt.Errorf("insert wallet %s: duplicate id", w.ID)
	}
	if w.Balance.IsNegative() {
		return fmt.Errorf("insert wallet %s: %w", w.ID, domain.ErrInsufficientFunds)
	}
	t.created[w.ID] = true
	t.pending[w.ID] = *w
	return nil
}

func (t *ledgerTx) SaveWallet(_ context.Context, w *domain.Wallet) error {
	current, ok := t.pending[w.ID]
	if !ok {
		if _, locked := t.held[w.ID]; !locked {
			return fmt.Errorf("save wallet %s: row not locked", w.ID)
		}
		t.store.mu.RLock()
		current = t.store.wallets[w.ID]
		t.store.mu.RUnlock()
	}
	if current.Version != w.Version {
		return fmt.Errorf("update wallet %s at version %d: %w", w.ID, w.Version, domain.ErrSerializationConflict)
	}
	if w.Balance.IsNegative() {
		return fmt.Errorf("update wallet %s: %w", w.ID, domain.ErrInsufficientFunds)
	}
	w.Version++
	t.pending[w.ID] = *w
	return nil
}

func (t *ledgerTx) AppendTransaction(_ context.Context, rec *domain.TransactionHistory) error {
	if !rec.Amount.IsPositive() {
		return fmt.Errorf("insert transaction history: amount must be positive")
	}
	t.histories = append(t.histories, *rec)
	return nil
}

func (t *ledgerTx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range t.created {
		if _, exists := s.wallets[id]; exists {
			return fmt.Errorf("commit tx: duplicate wallet %s", id)
		}
	}
	for id, w := range t.pending {
		s.wallets[id] = w
	}
	s.histories = append(s.histories, t.histories...)
	return nil
}

func (t *ledgerTx) unlock(id uuid.UUID) {
	if _, ok := t.held[id]; !ok {
		return
	}
	delete(t.held, id)
	<-t.store.rowLock(id)
}

func (t *ledgerTx) release() {
	for id := range t.held {
		t.unlock(id)
	}
}
