// Package memory is an in-process Ledger Store with real exclusive row locks.
// It backs the property tests and `walletctl -store=memory`.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
)

// Option configures a Store.
type Option func(*Store)

// WithLockHook registers fn to run each time a row lock is granted.
func WithLockHook(fn func(id uuid.UUID)) Option {
	return func(s *Store) { s.onLock = fn }
}

// WithCommitHook registers fn to run before each commit; a non-nil error aborts the commit.
func WithCommitHook(fn func() error) Option {
	return func(s *Store) { s.beforeCommit = fn }
}

// Store holds committed state. Uncommitted writes live in the owning transaction.
type Store struct {
	mu        sync.RWMutex
	wallets   map[uuid.UUID]domain.Wallet
	histories []domain.TransactionHistory
	keys      map[string]domain.IdempotencyKey

	locksMu sync.Mutex
	locks   map[uuid.UUID]chan struct{}

	onLock       func(id uuid.UUID)
	beforeCommit func() error
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		wallets: make(map[uuid.UUID]domain.Wallet),
		keys:    make(map[string]domain.IdempotencyKey),
		locks:   make(map[uuid.UUID]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- ports.Transactor ---

// WithTransaction runs fn with buffered writes, applying them only on success.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	t := &ledgerTx{
		store:   s,
		held:    make(map[uuid.UUID]struct{}),
		pending: make(map[uuid.UUID]domain.Wallet),
		created: make(map[uuid.UUID]bool),
	}
	defer t.release()

	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	if s.beforeCommit != nil {
		if err := s.beforeCommit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
	}
	return t.commit()
}

func (s *Store) rowLock(id uuid.UUID) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[id] = l
	}
	return l
}

// --- ports.WalletRepository ---

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (s *Store) List(_ context.Context, limit, offset int) ([]domain.Wallet, error) {
	s.mu.RLock()
	all := make([]domain.Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		all = append(all, w)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// --- ports.TransactionHistoryRepository ---

func (s *Store) ListByWallet(_ context.Context, walletID uuid.UUID) ([]domain.TransactionHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := []domain.TransactionHistory{}
	for _, h := range s.histories {
		if h.IsSender(walletID) || (h.ReceiverWalletID != nil && *h.ReceiverWalletID == walletID) {
			entries = append(entries, h)
		}
	}
	return entries, nil
}

// --- ports.IdempotencyRepository ---

func (s *Store) Insert(_ context.Context, k *domain.IdempotencyKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[k.Key]; exists {
		return false, nil
	}
	s.keys[k.Key] = *k
	return true, nil
}

func (s *Store) Get(_ context.Context, key string) (*domain.IdempotencyKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[key]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

func (s *Store) Reclaim(_ context.Context, observed *domain.IdempotencyKey, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[observed.Key]
	if !ok || k.Status != observed.Status || !k.UpdatedAt.Equal(observed.UpdatedAt) {
		return false, nil
	}
	k.Status = domain.IdempotencyProcessing
	k.ResponseBody = nil
	k.UpdatedAt = now
	s.keys[k.Key] = k
	return true, nil
}

func (s *Store) Finish(_ context.Context, key string, status domain.IdempotencyStatus, body []byte, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[key]
	if !ok || k.Status != domain.IdempotencyProcessing {
		return fmt.Errorf("finish idempotency key %q: %w", key, domain.ErrIdempotencyKeyMissing)
	}
	k.Status = status
	k.ResponseBody = append([]byte(nil), body...)
	k.UpdatedAt = now
	s.keys[key] = k
	return nil
}
