package bot

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/aeschylus/botwallets/internal/usecase/wallet"
)

type Config struct {
	Adapter        Adapter
	Formatter      Formatter
	WalletIDPrefix string
	MintURL        string
	Unit           string
}

// Bot binds one platform adapter to a command handler.
type Bot struct {
	adapter Adapter
	Handler *Handler
}

// New wires the command handler to the platform adapter. The adapter is
// required; a bot with nothing to listen on is a configuration error.
func New(registry *wallet.Registry, cfg Config, logger *zap.Logger) (*Bot, error) {
	if cfg.Adapter == nil {
		return nil, errors.New("bot requires a platform adapter")
	}

	prefix := cfg.WalletIDPrefix
	if prefix == "" {
		prefix = cfg.Adapter.Platform()
	}
	handler := NewHandler(registry, HandlerOptions{
		Formatter:      cfg.Formatter,
		WalletIDPrefix: prefix,
		MintURL:        cfg.MintURL,
		Unit:           cfg.Unit,
	}, logger)

	cfg.Adapter.Register(handler.Handle)

	return &Bot{
		adapter: cfg.Adapter,
		Handler: handler,
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	return b.adapter.Start(ctx)
}

func (b *Bot) Stop(ctx context.Context) error {
	return b.adapter.Stop(ctx)
}
