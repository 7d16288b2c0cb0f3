package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aeschylus/botwallets/internal/config"
	"github.com/aeschylus/botwallets/internal/domain"
	"github.com/aeschylus/botwallets/internal/repository"
	"github.com/aeschylus/botwallets/internal/server"
	"github.com/aeschylus/botwallets/internal/usecase/wallet"
)

const usage = `Usage: botwallets <command> [flags] [args]

Commands:
  serve                      run the HTTP/WS API server
  balance                    print wallet balance
  info                       print wallet info
  send <amount>              send an amount, printing the token
  receive <token>            redeem a token
  mint <amount>              request a funding invoice
  check <quote_id>           claim a paid funding quote
  pay <invoice>              pay an external invoice
  history                    print recent transactions

Flags (one-shot commands):
  -wallet-id    wallet identity (default "bw_default")
  -mint-url     mint endpoint (overrides MINT_URL)
  -unit         accounting unit (overrides UNIT)
`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("botwallets: no .env file found, relying on system env vars")
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command = args[0]
		args = args[1:]
	}

	if command == "serve" {
		runServe(cfg, logger)
		return
	}

	if err := runCommand(cfg, logger, command, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runServe(cfg *config.Config, logger *zap.Logger) {
	ctx := context.Background()
	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("botwallets serving", zap.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		logger.Fatal("server failed", zap.Error(err))
	}
}

func runCommand(cfg *config.Config, logger *zap.Logger, command string, args []string) error {
	flags := flag.NewFlagSet(command, flag.ExitOnError)
	walletID := flags.String("wallet-id", "bw_default", "wallet identity")
	mintURL := flags.String("mint-url", cfg.MintURL, "mint endpoint")
	unit := flags.String("unit", cfg.Unit, "accounting unit")
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := flags.Parse(args); err != nil {
		return err
	}
	rest := flags.Args()

	ctx := context.Background()
	db, err := config.ConnectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}

	registry := wallet.NewRegistry(repository.NewLedger(db), server.EngineFactory(logger), nil, logger)
	defer registry.Close()

	w, err := registry.Wallet(ctx, *walletID, *mintURL, *unit)
	if err != nil {
		return err
	}

	switch command {
	case "balance":
		balance, err := w.Balance(ctx)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"balance": balance})

	case "info":
		info, err := w.Info(ctx)
		if err != nil {
			return err
		}
		return printJSON(info)

	case "send":
		amount, err := positiveArg(rest, "send <amount>")
		if err != nil {
			return err
		}
		token, err := w.Send(ctx, amount, nil)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"token": token})

	case "receive":
		if len(rest) == 0 {
			return fmt.Errorf("usage: botwallets receive <token>")
		}
		amount, err := w.Receive(ctx, rest[0], nil)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"amount": amount})

	case "mint":
		amount, err := positiveArg(rest, "mint <amount>")
		if err != nil {
			return err
		}
		invoice, err := w.CreateMintInvoice(ctx, amount)
		if err != nil {
			return err
		}
		return printJSON(invoice)

	case "check":
		if len(rest) == 0 {
			return fmt.Errorf("usage: botwallets check <quote_id>")
		}
		minted, claimed, err := w.CheckMintQuote(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"claimed": claimed, "amount": minted})

	case "pay":
		if len(rest) == 0 {
			return fmt.Errorf("usage: botwallets pay <invoice>")
		}
		result, err := w.PayInvoice(ctx, rest[0], nil)
		if err != nil {
			return err
		}
		return printJSON(result)

	case "history":
		txs, err := w.Transactions(ctx, domain.TransactionQuery{Limit: 20})
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"transactions": txs})

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func positiveArg(rest []string, usageLine string) (int64, error) {
	if len(rest) == 0 {
		return 0, fmt.Errorf("usage: botwallets %s", usageLine)
	}
	amount, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("amount must be a positive integer")
	}
	return amount, nil
}

func printJSON(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}
