package service

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// WalletServiceImpl implements ports.WalletService: the transfer engine.
type WalletServiceImpl struct {
	transactor  ports.Transactor
	walletRepo  ports.WalletRepository
	historyRepo ports.TransactionHistoryRepository
	cache       ports.WalletCache
	clock       ports.Clock
	cfg         config.LedgerConfig
	loads       singleflight.Group
	log         zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	transactor ports.Transactor,
	walletRepo ports.WalletRepository,
	historyRepo ports.TransactionHistoryRepository,
	cache ports.WalletCache,
	clock ports.Clock,
	cfg config.LedgerConfig,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		transactor:  transactor,
		walletRepo:  walletRepo,
		historyRepo: historyRepo,
		cache:       cache,
		clock:       clock,
		cfg:         cfg,
		log:         log,
	}
}

// CreateWallet opens a wallet and records its initial deposit.
// A zero initial amount creates the wallet without a ledger entry.
func (s *WalletServiceImpl) CreateWallet(ctx context.Context, req ports.CreateWalletRequest) (*domain.Wallet, error) {
	if req.Amount.IsNegative() {
		return nil, apperror.ErrInvalidAmount()
	}
	currency := req.Currency
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var wallet *domain.Wallet
	err := s.withRetry(ctx, "create_wallet", func(ctx context.Context) error {
		return s.transactor.WithTransaction(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
			now := s.clock.Now()
			w := domain.NewWallet(currency, req.Amount, now)
			if err := tx.InsertWallet(ctx, w); err != nil {
				return err
			}
			if req.Amount.IsPositive() {
				if err := tx.AppendTransaction(ctx, domain.NewInitialDeposit(w, req.Amount, now)); err != nil {
					return err
				}
			}
			wallet = w
			return nil
		})
	})
	if err != nil {
		return nil, s.translate("create wallet", err)
	}

	s.refreshCache(ctx, wallet)

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("currency", wallet.Currency).
		Str("amount", req.Amount.String()).
		Msg("wallet created")

	return wallet, nil
}

// FundWallet credits a wallet under its row lock and records a deposit.
func (s *WalletServiceImpl) FundWallet(ctx context.Context, req ports.FundWalletRequest) (*ports.FundResult, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result *ports.FundResult
	err := s.withRetry(ctx, "fund_wallet", func(ctx context.Context) error {
		return s.transactor.WithTransaction(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
			w, err := s.lock(ctx, tx, req.WalletID, "wallet")
			if err != nil {
				return err
			}

			now := s.clock.Now()
			w.Credit(req.Amount, now)
			if err := tx.SaveWallet(ctx, w); err != nil {
				return err
			}

			rec := domain.NewDeposit(w.ID, req.Amount, now)
			if err := tx.AppendTransaction(ctx, rec); err != nil {
				return err
			}
			result = &ports.FundResult{Wallet: w, Transaction: rec}
			return nil
		})
	})
	if err != nil {
		return nil, s.translate("fund wallet", err)
	}

	s.refreshCache(ctx, result.Wallet)

	s.log.Info().
		Str("tx_id", result.Transaction.ID.String()).
		Str("wallet_id", req.WalletID.String()).
		Str("amount", req.Amount.String()).
		Msg("wallet funded")

	return result, nil
}

// TransferFund moves amount from sender to receiver. Row locks are always taken
// in wallet-id order so opposite-direction transfers cannot deadlock.
func (s *WalletServiceImpl) TransferFund(ctx context.Context, req ports.TransferRequest) (*domain.TransactionHistory, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.SenderID == req.ReceiverID {
		return nil, apperror.ErrSameWallet()
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rec *domain.TransactionHistory
	err := s.withRetry(ctx, "transfer_fund", func(ctx context.Context) error {
		return s.transactor.WithTransaction(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
			first, second := domain.LockOrder(req.SenderID, req.ReceiverID)
			locked := make(map[uuid.UUID]*domain.Wallet, 2)
			for _, id := range []uuid.UUID{first, second} {
				entity := "receiver wallet"
				if id == req.SenderID {
					entity = "sender wallet"
				}
				w, err := s.lock(ctx, tx, id, entity)
				if err != nil {
					return err
				}
				locked[id] = w
			}
			sender, receiver := locked[req.SenderID], locked[req.ReceiverID]

			now := s.clock.Now()
			if err := sender.Debit(req.Amount, now); err != nil {
				return apperror.ErrInsufficientFunds()
			}
			receiver.Credit(req.Amount, now)

			for _, id := range []uuid.UUID{first, second} {
				if err := tx.SaveWallet(ctx, locked[id]); err != nil {
					return err
				}
			}

			r := domain.NewTransfer(sender.ID, receiver.ID, req.Amount, now)
			if err := tx.AppendTransaction(ctx, r); err != nil {
				return err
			}
			rec = r
			return nil
		})
	})
	if err != nil {
		return nil, s.translate("transfer fund", err)
	}

	s.invalidate(ctx, req.SenderID, req.ReceiverID)

	s.log.Info().
		Str("tx_id", rec.ID.String()).
		Str("sender_wallet_id", req.SenderID.String()).
		Str("receiver_wallet_id", req.ReceiverID.String()).
		Str("amount", req.Amount.String()).
		Msg("transfer completed")

	return rec, nil
}

// GetWallet returns a wallet with its history, cache-first.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, id uuid.UUID) (*ports.WalletDetails, error) {
	w, err := s.loadWallet(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	entries, err := s.loadTransactions(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet transactions: %w", err))
	}

	return &ports.WalletDetails{
		Wallet:       w,
		Transactions: domain.ViewFor(id, entries),
	}, nil
}

// GetWalletTransactionHistories returns the wallet's entries with display amounts
// signed from its point of view. An unknown wallet has an empty history.
func (s *WalletServiceImpl) GetWalletTransactionHistories(ctx context.Context, id uuid.UUID) ([]domain.TransactionView, error) {
	entries, err := s.loadTransactions(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction histories: %w", err))
	}
	return domain.ViewFor(id, entries), nil
}

// ListWallets pages through all wallets straight from the store.
func (s *WalletServiceImpl) ListWallets(ctx context.Context, limit, offset int) ([]domain.Wallet, error) {
	if offset < 0 {
		return nil, apperror.Validation("offset must not be negative")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	wallets, err := s.walletRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list wallets: %w", err))
	}
	if wallets == nil {
		wallets = []domain.Wallet{}
	}
	return wallets, nil
}

// AuditWallet reconciles the stored balance against the ledger. The wallet row
// is locked while history is read, so no mutation can land in between.
func (s *WalletServiceImpl) AuditWallet(ctx context.Context, id uuid.UUID) (*domain.AuditReport, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var report *domain.AuditReport
	err := s.withRetry(ctx, "audit_wallet", func(ctx context.Context) error {
		return s.transactor.WithTransaction(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
			w, err := s.lock(ctx, tx, id, "wallet")
			if err != nil {
				return err
			}
			entries, err := s.historyRepo.ListByWallet(ctx, id)
			if err != nil {
				return err
			}
			report = domain.Reconcile(w, entries)
			return nil
		})
	})
	if err != nil {
		return nil, s.translate("audit wallet", err)
	}

	if !report.Balanced {
		s.log.Error().
			Str("wallet_id", id.String()).
			Str("balance", report.Balance.String()).
			Str("ledger_sum", report.LedgerSum.String()).
			Msg("wallet balance does not match ledger")
	}
	return report, nil
}

// lock takes the row lock, mapping a missing row to a NotFound for entity.
func (s *WalletServiceImpl) lock(ctx context.Context, tx ports.LedgerTx, id uuid.UUID, entity string) (*domain.Wallet, error) {
	w, err := tx.LockWallet(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return nil, apperror.ErrNotFound(entity)
		}
		return nil, err
	}
	return w, nil
}

// translate classifies store errors at the engine boundary.
func (s *WalletServiceImpl) translate(op string, err error) error {
	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, domain.ErrWalletNotFound):
		return apperror.ErrNotFound("wallet")
	case errors.Is(err, domain.ErrInsufficientFunds):
		return apperror.ErrInsufficientFunds()
	default:
		s.log.Error().Err(err).Str("op", op).Msg("ledger operation failed")
		return apperror.InternalError(fmt.Errorf("%s: %w", op, err))
	}
}

func (s *WalletServiceImpl) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.OperationTimeout)
}
