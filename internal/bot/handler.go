// Package bot routes chat commands (balance, receive, send, fund, claim,
// history) to per-user wallets. Platform specifics stay behind the Adapter
// interface.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/aeschylus/botwallets/internal/domain"
	"github.com/aeschylus/botwallets/internal/usecase/wallet"
	"github.com/aeschylus/botwallets/internal/xerrors"
)

type HandlerOptions struct {
	Formatter      Formatter
	WalletIDPrefix string
	MintURL        string
	Unit           string
}

// Handler executes chat commands against per-user wallets. The ledger itself
// imposes no per-wallet mutual exclusion, so the handler serializes commands
// per user; without that, two rapid commands from one user could race on
// selection and one would fail with a reservation conflict.
type Handler struct {
	registry  *wallet.Registry
	formatter Formatter
	prefix    string
	mintURL   string
	unit      string
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewHandler(registry *wallet.Registry, opts HandlerOptions, logger *zap.Logger) *Handler {
	formatter := opts.Formatter
	if formatter == nil {
		formatter = PlainFormatter{}
	}
	prefix := opts.WalletIDPrefix
	if prefix == "" {
		prefix = "bot"
	}
	return &Handler{
		registry:  registry,
		formatter: formatter,
		prefix:    prefix,
		mintURL:   opts.MintURL,
		unit:      opts.Unit,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Handle runs one command and replies. Unknown commands are silently
// ignored; errors are always rendered, never raised to the adapter.
func (h *Handler) Handle(ctx context.Context, cmd Command, reply ReplyFunc) {
	unlock := h.lockUser(cmd.UserID)
	defer unlock()

	var err error
	switch cmd.Name {
	case "balance":
		err = h.handleBalance(ctx, cmd, reply)
	case "receive":
		err = h.handleReceive(ctx, cmd, reply)
	case "send":
		err = h.handleSend(ctx, cmd, reply)
	case "fund":
		err = h.handleFund(ctx, cmd, reply)
	case "claim":
		err = h.handleClaim(ctx, cmd, reply)
	case "history":
		err = h.handleHistory(ctx, cmd, reply)
	default:
		return
	}

	if err != nil {
		h.replyError(ctx, cmd, reply, err)
	}
}

func (h *Handler) replyError(ctx context.Context, cmd Command, reply ReplyFunc, err error) {
	var insufficient *xerrors.InsufficientBalanceError
	var invalidToken *xerrors.InvalidTokenError

	var text string
	switch {
	case errors.As(err, &insufficient):
		text = h.formatter.InsufficientBalance(insufficient.Required, insufficient.Available)
	case errors.As(err, &invalidToken):
		text = h.formatter.Error("Invalid or spent token.")
	default:
		text = h.formatter.Error(err.Error())
	}
	if sendErr := reply(ctx, text); sendErr != nil {
		h.logger.Warn("failed to deliver error reply",
			zap.String("user_id", cmd.UserID),
			zap.Error(sendErr))
	}
}

func (h *Handler) handleBalance(ctx context.Context, cmd Command, reply ReplyFunc) error {
	w, err := h.wallet(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	balance, err := w.Balance(ctx)
	if err != nil {
		return err
	}
	return reply(ctx, h.formatter.Balance(balance))
}

func (h *Handler) handleReceive(ctx context.Context, cmd Command, reply ReplyFunc) error {
	token := strings.TrimSpace(strings.Join(cmd.Args, " "))
	if token == "" {
		return reply(ctx, h.formatter.Usage("receive", "<cashu_token>"))
	}
	w, err := h.wallet(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	amount, err := w.Receive(ctx, token, &domain.Memo{Sender: cmd.Username})
	if err != nil {
		return err
	}
	balance, err := w.Balance(ctx)
	if err != nil {
		return err
	}
	return reply(ctx, h.formatter.Received(amount, balance))
}

func (h *Handler) handleSend(ctx context.Context, cmd Command, reply ReplyFunc) error {
	amount := parseAmount(cmd.Args)
	if amount <= 0 {
		return reply(ctx, h.formatter.Usage("send", "<amount>"))
	}
	w, err := h.wallet(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	token, err := w.Send(ctx, amount, &domain.Memo{Sender: cmd.Username})
	if err != nil {
		return err
	}
	return reply(ctx, h.formatter.Sent(token))
}

func (h *Handler) handleFund(ctx context.Context, cmd Command, reply ReplyFunc) error {
	amount := parseAmount(cmd.Args)
	if amount <= 0 {
		return reply(ctx, h.formatter.Usage("fund", "<amount>"))
	}
	w, err := h.wallet(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	inv, err := w.CreateMintInvoice(ctx, amount)
	if err != nil {
		return err
	}
	return reply(ctx, h.formatter.FundInvoice(inv.Invoice, inv.QuoteID))
}

func (h *Handler) handleClaim(ctx context.Context, cmd Command, reply ReplyFunc) error {
	if len(cmd.Args) == 0 || cmd.Args[0] == "" {
		return reply(ctx, h.formatter.Usage("claim", "<quote_id>"))
	}
	w, err := h.wallet(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	minted, claimed, err := w.CheckMintQuote(ctx, cmd.Args[0])
	if err != nil {
		return err
	}
	if !claimed {
		return reply(ctx, h.formatter.NotPaidYet())
	}
	balance, err := w.Balance(ctx)
	if err != nil {
		return err
	}
	return reply(ctx, h.formatter.Claimed(minted, balance))
}

func (h *Handler) handleHistory(ctx context.Context, cmd Command, reply ReplyFunc) error {
	w, err := h.wallet(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	txs, err := w.Transactions(ctx, domain.TransactionQuery{Limit: 5})
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		return reply(ctx, "No transactions yet.")
	}
	lines := make([]string, len(txs))
	for i, tx := range txs {
		sign := "-"
		if tx.Type == domain.TxReceive || tx.Type == domain.TxMint {
			sign = "+"
		}
		lines[i] = fmt.Sprintf("%s%d sats (%s) %s", sign, tx.Amount, tx.Type, tx.Status)
	}
	return reply(ctx, h.formatter.History(lines))
}

func (h *Handler) wallet(ctx context.Context, userID string) (*wallet.Service, error) {
	return h.registry.Wallet(ctx, h.prefix+"_"+userID, h.mintURL, h.unit)
}

func (h *Handler) lockUser(userID string) func() {
	h.mu.Lock()
	lock, ok := h.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		h.locks[userID] = lock
	}
	h.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func parseAmount(args []string) int64 {
	if len(args) == 0 {
		return 0
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
