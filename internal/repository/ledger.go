package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aeschylus/botwallets/internal/domain"
)

// Ledger composes the proof, transaction and wallet repositories and executes
// each local step of the reserve/execute/finalize protocol as one database
// transaction. Either every mutation in a step applies or none do; no reader
// ever observes reserved proofs without their transaction row, or spent
// proofs without a resolved transaction.
type Ledger struct {
	db      *pgxpool.Pool
	proofs  *ProofRepository
	txs     *TransactionRepository
	wallets *WalletRepository
}

func NewLedger(db *pgxpool.Pool) *Ledger {
	return &Ledger{
		db:      db,
		proofs:  NewProofRepository(),
		txs:     NewTransactionRepository(),
		wallets: NewWalletRepository(),
	}
}

func (l *Ledger) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (l *Ledger) Balance(ctx context.Context, walletID string) (int64, error) {
	return l.proofs.Balance(ctx, l.db, walletID)
}

func (l *Ledger) SelectForAmount(ctx context.Context, walletID string, target int64) ([]domain.Proof, error) {
	return l.proofs.SelectForAmount(ctx, l.db, walletID, target)
}

func (l *Ledger) UpsertWallet(ctx context.Context, walletID, mintURL, unit string) error {
	return l.wallets.Upsert(ctx, l.db, walletID, mintURL, unit)
}

func (l *Ledger) GetWallet(ctx context.Context, walletID string) (*domain.WalletMeta, error) {
	return l.wallets.Get(ctx, l.db, walletID)
}

// RecordTransaction inserts a pending transaction with no proof reservation.
// Used by receive and mint-invoice flows, where nothing local is at risk.
func (l *Ledger) RecordTransaction(ctx context.Context, rec *domain.TransactionRecord) error {
	return l.txs.Create(ctx, l.db, rec)
}

// ReserveWithTransaction opens a spending operation: record the pending
// transaction and reserve the selected proofs in one atomic step.
func (l *Ledger) ReserveWithTransaction(ctx context.Context, rec *domain.TransactionRecord, proofIDs []string) error {
	return l.withTx(ctx, func(tx pgx.Tx) error {
		if err := l.txs.Create(ctx, tx, rec); err != nil {
			return err
		}
		return l.proofs.Reserve(ctx, tx, proofIDs, rec.ID)
	})
}

// CommitSpend closes a spending operation after the engine call succeeded:
// finalize the reserved proofs as spent, insert any change/keep proofs, and
// resolve the transaction, atomically. Status comes from the engine's
// reported outcome (a melt can finalize proofs yet report the payment failed).
func (l *Ledger) CommitSpend(ctx context.Context, walletID, txID string, proofIDs []string, change []domain.ProofUnit, status domain.TxStatus, upd ResolveUpdate) error {
	return l.withTx(ctx, func(tx pgx.Tx) error {
		if err := l.proofs.FinalizeSpent(ctx, tx, proofIDs, txID); err != nil {
			return err
		}
		if len(change) > 0 {
			if err := l.proofs.Insert(ctx, tx, walletID, change, txID); err != nil {
				return err
			}
		}
		return l.txs.Resolve(ctx, tx, txID, status, upd)
	})
}

// RollbackSpend closes a spending operation after an engine failure: restore
// the reserved proofs to unspent and fail the transaction, atomically.
func (l *Ledger) RollbackSpend(ctx context.Context, txID string, proofIDs []string) error {
	return l.withTx(ctx, func(tx pgx.Tx) error {
		if err := l.proofs.Rollback(ctx, tx, proofIDs); err != nil {
			return err
		}
		return l.txs.Resolve(ctx, tx, txID, domain.TxFailed, ResolveUpdate{})
	})
}

// ResolveWithNewProofs closes a receiving operation (receive, mint claim)
// after the engine call succeeded: insert the fresh proofs and complete the
// transaction, atomically.
func (l *Ledger) ResolveWithNewProofs(ctx context.Context, walletID, txID string, units []domain.ProofUnit, upd ResolveUpdate) error {
	return l.withTx(ctx, func(tx pgx.Tx) error {
		if err := l.proofs.Insert(ctx, tx, walletID, units, txID); err != nil {
			return err
		}
		return l.txs.Resolve(ctx, tx, txID, domain.TxCompleted, upd)
	})
}

// ResolveFailed fails a pending transaction that reserved nothing.
func (l *Ledger) ResolveFailed(ctx context.Context, txID string) error {
	return l.txs.Resolve(ctx, l.db, txID, domain.TxFailed, ResolveUpdate{})
}

func (l *Ledger) FindPendingMintByQuote(ctx context.Context, walletID, quoteID string) (*domain.TransactionRecord, error) {
	return l.txs.FindPendingMintByQuote(ctx, l.db, walletID, quoteID)
}

func (l *Ledger) Transactions(ctx context.Context, walletID string, query domain.TransactionQuery) ([]domain.TransactionRecord, error) {
	return l.txs.List(ctx, l.db, walletID, query)
}

func (l *Ledger) Transaction(ctx context.Context, txID string) (*domain.TransactionRecord, error) {
	return l.txs.Get(ctx, l.db, txID)
}

// RecoverStuckPending rolls back spending transactions (and their reserved
// proofs) that have sat in pending longer than olderThan. A transaction that
// old has lost its process mid-flight; its engine call may nonetheless have
// succeeded remotely, so thresholds must comfortably exceed any engine
// timeout. Returns the number of transactions failed.
func (l *Ledger) RecoverStuckPending(ctx context.Context, olderThan time.Duration) (int, error) {
	var recovered int
	err := l.withTx(ctx, func(tx pgx.Tx) error {
		cutoff := time.Now().Add(-olderThan)
		rows, err := tx.Query(ctx,
			`SELECT id FROM transactions
			 WHERE status = 'pending' AND type IN ('send', 'melt') AND created_at < $1`,
			cutoff,
		)
		if err != nil {
			return err
		}
		var stuck []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			stuck = append(stuck, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, txID := range stuck {
			if _, err := tx.Exec(ctx,
				`UPDATE proofs SET state = 'unspent', spent_by_tx = NULL WHERE spent_by_tx = $1 AND state = 'pending'`,
				txID,
			); err != nil {
				return err
			}
			if err := l.txs.Resolve(ctx, tx, txID, domain.TxFailed, ResolveUpdate{}); err != nil {
				return err
			}
			recovered++
		}
		return nil
	})
	return recovered, err
}
