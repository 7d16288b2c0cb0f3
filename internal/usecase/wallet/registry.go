package wallet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/aeschylus/botwallets/internal/engine"
)

// EngineFactory builds an engine for one (mint, unit) pair.
type EngineFactory func(mintURL, unit string) (engine.Engine, error)

// Registry hands out wallet orchestrators while sharing one store and one
// engine per (mint, unit) pair across all wallet identities. It is the
// explicit, caller-owned replacement for a process-wide pool: construct it,
// pass it where needed, Close it when done.
type Registry struct {
	store    Store
	factory  EngineFactory
	logger   *zap.Logger
	notifier *Notifier

	mu      sync.Mutex
	engines map[string]engine.Engine
	wallets map[string]*Service
	closed  bool
}

func NewRegistry(store Store, factory EngineFactory, notifier *Notifier, logger *zap.Logger) *Registry {
	return &Registry{
		store:    store,
		factory:  factory,
		logger:   logger,
		notifier: notifier,
		engines:  make(map[string]engine.Engine),
		wallets:  make(map[string]*Service),
	}
}

// Wallet returns the orchestrator for walletID, creating it (and its shared
// engine) on first use.
func (r *Registry) Wallet(ctx context.Context, walletID, mintURL, unit string) (*Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New("registry is closed")
	}

	if svc, ok := r.wallets[walletID]; ok {
		return svc, nil
	}

	eng, err := r.engineLocked(mintURL, unit)
	if err != nil {
		return nil, err
	}
	svc, err := New(ctx, walletID, mintURL, unit, r.store, eng, r.logger)
	if err != nil {
		return nil, err
	}
	svc.Notifier = r.notifier
	r.wallets[walletID] = svc
	return svc, nil
}

// Notifier exposes the shared event fan-out for transport handlers.
func (r *Registry) Notifier() *Notifier { return r.notifier }

func (r *Registry) engineLocked(mintURL, unit string) (engine.Engine, error) {
	key := mintURL + "::" + unit
	if eng, ok := r.engines[key]; ok {
		return eng, nil
	}
	eng, err := r.factory(mintURL, unit)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine for %s: %w", key, err)
	}
	r.engines[key] = eng
	return eng, nil
}

// Close releases every held engine and refuses further wallet handouts. The
// store's lifetime belongs to whoever constructed it.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true

	for key, eng := range r.engines {
		if closer, ok := eng.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				r.logger.Warn("failed to close engine", zap.String("engine", key), zap.Error(err))
			}
		}
	}
	r.engines = nil
	r.wallets = nil
}
