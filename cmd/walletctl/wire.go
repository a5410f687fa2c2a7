package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"wallet-ledger/config"
	"wallet-ledger/internal/adapter/storage/memory"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/rs/zerolog"
)

// app holds the wired engine for one command invocation.
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	wallets    *service.WalletServiceImpl
	idempotent *service.IdempotentWalletService
	health     []ports.HealthChecker
	closers    []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires the engine against PostgreSQL and Redis.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })

	// Repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	historyRepo := pgStorage.NewTransactionHistoryRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	transactor := pgStorage.NewTransactor(pool, pgStorage.IsoLevel(cfg.Database.Isolation))

	// Caches
	walletCache := redisStorage.NewWalletCache(rdb, cfg.Cache.WalletTTL, cfg.Cache.HistoryTTL)
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)

	a.wire(transactor, walletRepo, historyRepo, idempotencyRepo, walletCache, idempotencyCache)
	a.health = []ports.HealthChecker{
		pgStorage.NewHealthCheck(pool, net.JoinHostPort(cfg.Database.Host, strconv.Itoa(cfg.Database.Port))),
		redisStorage.NewHealthCheck(rdb),
	}
	return a, nil
}

// newMemoryApp wires the engine against the in-process store. State lives
// only as long as the process.
func newMemoryApp(cfg *config.Config, log zerolog.Logger) *app {
	a := &app{cfg: cfg, log: log}
	store := memory.NewStore()
	a.wire(
		store, store, store, store,
		memory.NewWalletCache(cfg.Cache.WalletTTL, cfg.Cache.HistoryTTL),
		memory.NewIdempotencyCache(),
	)
	return a
}

func (a *app) wire(
	transactor ports.Transactor,
	walletRepo ports.WalletRepository,
	historyRepo ports.TransactionHistoryRepository,
	idempotencyRepo ports.IdempotencyRepository,
	walletCache ports.WalletCache,
	idempotencyCache ports.IdempotencyCache,
) {
	clock := service.SystemClock{}
	a.wallets = service.NewWalletService(
		transactor,
		walletRepo,
		historyRepo,
		walletCache,
		clock,
		a.cfg.Ledger,
		logger.Component(a.log, "wallet_service"),
	)
	guard := service.NewIdempotencyGuard(
		idempotencyRepo,
		idempotencyCache,
		clock,
		a.cfg.Idempotency,
		logger.Component(a.log, "idempotency_guard"),
	)
	a.idempotent = service.NewIdempotentWalletService(a.wallets, guard, logger.Component(a.log, "idempotency"))
}
