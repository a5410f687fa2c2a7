package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const usage = `Usage: walletctl [flags] <command> [arguments]

Commands:
  create <amount> [currency]
  fund <wallet_id> <amount>
  transfer <sender_id> <receiver_id> <amount>
  get <wallet_id>
  history <wallet_id>
  list [limit] [offset]
  audit <wallet_id>
  health
  stress <wallet_a|new> <wallet_b|new> <n> <amount>

Flags:
`

func main() {
	configPath := flag.String("config", "", "path to config file")
	store := flag.String("store", "postgres", "ledger store: postgres or memory")
	key := flag.String("key", "", "idempotency key for create, fund and transfer")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var a *app
	switch *store {
	case "postgres":
		a, err = newApp(ctx, cfg, log)
		if err != nil {
			log.Error().Err(err).Msg("failed to initialise ledger")
			os.Exit(1)
		}
	case "memory":
		a = newMemoryApp(cfg, log)
	default:
		fmt.Fprintf(os.Stderr, "unknown store %q\n", *store)
		os.Exit(2)
	}

	err = a.run(ctx, *key, flag.Args())
	a.Close()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, key string, args []string) error {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "create":
		if err := needArgs(args, 1, "create <amount> [currency]"); err != nil {
			return err
		}
		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		req := ports.CreateWalletRequest{Amount: amount}
		if len(args) > 1 {
			req.Currency = args[1]
		}
		_, body, err := a.idempotent.CreateWallet(ctx, key, req)
		if err != nil {
			return err
		}
		return printRaw(body)

	case "fund":
		if err := needArgs(args, 2, "fund <wallet_id> <amount>"); err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		_, body, err := a.idempotent.FundWallet(ctx, key, ports.FundWalletRequest{WalletID: id, Amount: amount})
		if err != nil {
			return err
		}
		return printRaw(body)

	case "transfer":
		if err := needArgs(args, 3, "transfer <sender_id> <receiver_id> <amount>"); err != nil {
			return err
		}
		sender, err := parseID(args[0])
		if err != nil {
			return err
		}
		receiver, err := parseID(args[1])
		if err != nil {
			return err
		}
		amount, err := parseAmount(args[2])
		if err != nil {
			return err
		}
		_, body, err := a.idempotent.TransferFund(ctx, key, ports.TransferRequest{
			SenderID:   sender,
			ReceiverID: receiver,
			Amount:     amount,
		})
		if err != nil {
			return err
		}
		return printRaw(body)

	case "get":
		if err := needArgs(args, 1, "get <wallet_id>"); err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		details, err := a.wallets.GetWallet(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(details)

	case "history":
		if err := needArgs(args, 1, "history <wallet_id>"); err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		views, err := a.wallets.GetWalletTransactionHistories(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(views)

	case "list":
		limit, offset := 0, 0
		var err error
		if len(args) > 0 {
			if limit, err = parseInt(args[0], "limit"); err != nil {
				return err
			}
		}
		if len(args) > 1 {
			if offset, err = parseInt(args[1], "offset"); err != nil {
				return err
			}
		}
		wallets, err := a.wallets.ListWallets(ctx, limit, offset)
		if err != nil {
			return err
		}
		return printJSON(wallets)

	case "audit":
		if err := needArgs(args, 1, "audit <wallet_id>"); err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		report, err := a.wallets.AuditWallet(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(report)

	case "health":
		return a.checkHealth(ctx)

	case "stress":
		return a.stress(ctx, args)

	default:
		return apperror.Validation(fmt.Sprintf("unknown command %q", cmd))
	}
}

func (a *app) checkHealth(ctx context.Context) error {
	statuses := make([]ports.HealthStatus, 0, len(a.health))
	var failed error
	for _, hc := range a.health {
		st := hc.Check(ctx)
		statuses = append(statuses, st)
		if !st.Healthy {
			failed = errors.Join(failed, fmt.Errorf("%s at %s: %s", st.Name, st.Target, st.Error))
		}
	}
	if err := printJSON(statuses); err != nil {
		return err
	}
	if failed != nil {
		return apperror.InternalError(failed)
	}
	return nil
}

// stress drives opposite-direction transfers between two wallets and audits both.
// "new" in place of a wallet id creates one funded with n*amount.
func (a *app) stress(ctx context.Context, args []string) error {
	if err := needArgs(args, 4, "stress <wallet_a|new> <wallet_b|new> <n> <amount>"); err != nil {
		return err
	}
	n, err := parseInt(args[2], "n")
	if err != nil {
		return err
	}
	amount, err := parseAmount(args[3])
	if err != nil {
		return err
	}

	ids := make([]uuid.UUID, 2)
	for i, arg := range args[:2] {
		if arg != "new" {
			if ids[i], err = parseID(arg); err != nil {
				return err
			}
			continue
		}
		w, err := a.wallets.CreateWallet(ctx, ports.CreateWalletRequest{Amount: amount.Mul(decimal.NewFromInt(int64(n)))})
		if err != nil {
			return err
		}
		ids[i] = w.ID
	}

	driver, err := service.NewTransferDriver(a.wallets, a.cfg.Worker.PoolSize, logger.Component(a.log, "stress"))
	if err != nil {
		return apperror.InternalError(err)
	}
	defer driver.Release()

	result, err := driver.RunOppositeTransfers(ctx, ids[0], ids[1], n, amount)
	if err != nil {
		return apperror.InternalError(err)
	}

	audits := make([]any, 0, len(ids))
	for _, id := range ids {
		report, err := a.wallets.AuditWallet(ctx, id)
		if err != nil {
			return err
		}
		audits = append(audits, report)
	}
	return printJSON(map[string]any{
		"result": result,
		"audits": audits,
	})
}

func needArgs(args []string, n int, form string) error {
	if len(args) < n {
		return apperror.Validation("usage: " + form)
	}
	return nil
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apperror.Validation(fmt.Sprintf("invalid wallet id %q", s))
	}
	return id, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperror.ErrInvalidAmount()
	}
	return amount, nil
}

func parseInt(s, name string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperror.Validation(fmt.Sprintf("invalid %s %q", name, s))
	}
	return v, nil
}

func printRaw(body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return apperror.InternalError(err)
	}
	return printJSON(v)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		fmt.Fprintf(os.Stderr, "error [%s]: %s\n", appErr.Code, appErr.Message)
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}
