// Package worker holds background jobs. The recovery worker closes the gap
// left by a crash between reserving proofs and resolving the operation:
// without it, those proofs stay pending forever.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RecoveryStore is the slice of the ledger the worker needs.
type RecoveryStore interface {
	RecoverStuckPending(ctx context.Context, olderThan time.Duration) (int, error)
}

// RecoveryWorker periodically rolls back spending transactions stuck in
// pending past the threshold. The threshold must comfortably exceed any
// engine timeout: a transaction younger than that may still be mid-flight,
// and one older may have succeeded remotely, which is why this worker is
// opt-in and conservative by default.
type RecoveryWorker struct {
	store     RecoveryStore
	interval  time.Duration
	threshold time.Duration
	logger    *zap.Logger
	stopChan  chan struct{}
}

func NewRecoveryWorker(store RecoveryStore, interval, threshold time.Duration, logger *zap.Logger) *RecoveryWorker {
	return &RecoveryWorker{
		store:     store,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

func (w *RecoveryWorker) Start(ctx context.Context) {
	w.logger.Info("starting recovery worker",
		zap.Duration("interval", w.interval),
		zap.Duration("threshold", w.threshold))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)

		case <-w.stopChan:
			w.logger.Info("stopping recovery worker")
			return

		case <-ctx.Done():
			w.logger.Info("context cancelled, stopping recovery worker")
			return
		}
	}
}

func (w *RecoveryWorker) sweep(ctx context.Context) {
	recovered, err := w.store.RecoverStuckPending(ctx, w.threshold)
	if err != nil {
		w.logger.Error("recovery sweep failed", zap.Error(err))
		return
	}
	if recovered > 0 {
		w.logger.Warn("rolled back stuck pending transactions", zap.Int("count", recovered))
	}
}

func (w *RecoveryWorker) Stop() {
	close(w.stopChan)
}
