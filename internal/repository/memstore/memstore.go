// Package memstore is an in-memory ledger with the same step semantics as the
// postgres-backed one. It exists for tests and for running the stack without a
// database; each method is atomic under one mutex, and state transitions are
// enforced the same way the SQL conditions enforce them.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aeschylus/botwallets/internal/domain"
	"github.com/aeschylus/botwallets/internal/repository"
	"github.com/aeschylus/botwallets/internal/xerrors"
)

type Store struct {
	mu      sync.Mutex
	wallets map[string]*domain.WalletMeta
	proofs  map[string]*domain.Proof
	txs     map[string]*domain.TransactionRecord
}

func New() *Store {
	return &Store{
		wallets: make(map[string]*domain.WalletMeta),
		proofs:  make(map[string]*domain.Proof),
		txs:     make(map[string]*domain.TransactionRecord),
	}
}

func (s *Store) Balance(_ context.Context, walletID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, p := range s.proofs {
		if p.WalletID == walletID && p.State == domain.ProofUnspent {
			total += p.Amount
		}
	}
	return total, nil
}

func (s *Store) SelectForAmount(_ context.Context, walletID string, target int64) ([]domain.Proof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []domain.Proof
	for _, p := range s.proofs {
		if p.WalletID == walletID && p.State == domain.ProofUnspent {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Amount < all[j].Amount })

	var selected []domain.Proof
	var total int64
	for _, p := range all {
		if total >= target {
			break
		}
		selected = append(selected, p)
		total += p.Amount
	}
	if total < target {
		return nil, xerrors.ErrInsufficientFunds
	}
	return selected, nil
}

func (s *Store) UpsertWallet(_ context.Context, walletID, mintURL, unit string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wallets[walletID]; ok {
		w.UpdatedAt = time.Now()
		return nil
	}
	now := time.Now()
	s.wallets[walletID] = &domain.WalletMeta{
		ID: walletID, MintURL: mintURL, Unit: unit, CreatedAt: now, UpdatedAt: now,
	}
	return nil
}

func (s *Store) GetWallet(_ context.Context, walletID string) (*domain.WalletMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletID]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	copied := *w
	return &copied, nil
}

func (s *Store) RecordTransaction(_ context.Context, rec *domain.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTxLocked(rec)
}

func (s *Store) ReserveWithTransaction(_ context.Context, rec *domain.TransactionRecord, proofIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range proofIDs {
		p, ok := s.proofs[id]
		if !ok || p.State != domain.ProofUnspent {
			return xerrors.ErrReservationConflict
		}
	}
	if err := s.insertTxLocked(rec); err != nil {
		return err
	}
	for _, id := range proofIDs {
		txID := rec.ID
		s.proofs[id].State = domain.ProofPending
		s.proofs[id].SpentByTx = &txID
	}
	return nil
}

func (s *Store) CommitSpend(_ context.Context, walletID, txID string, proofIDs []string, change []domain.ProofUnit, status domain.TxStatus, upd repository.ResolveUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range proofIDs {
		p, ok := s.proofs[id]
		if !ok || p.State != domain.ProofPending || p.SpentByTx == nil || *p.SpentByTx != txID {
			return xerrors.ErrStateMismatch
		}
	}
	for _, id := range proofIDs {
		s.proofs[id].State = domain.ProofSpent
	}
	if err := s.insertProofsLocked(walletID, change, txID); err != nil {
		return err
	}
	return s.resolveLocked(txID, status, upd)
}

func (s *Store) RollbackSpend(_ context.Context, txID string, proofIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range proofIDs {
		p, ok := s.proofs[id]
		if !ok || p.State != domain.ProofPending {
			return xerrors.ErrStateMismatch
		}
	}
	for _, id := range proofIDs {
		s.proofs[id].State = domain.ProofUnspent
		s.proofs[id].SpentByTx = nil
	}
	return s.resolveLocked(txID, domain.TxFailed, repository.ResolveUpdate{})
}

func (s *Store) ResolveWithNewProofs(_ context.Context, walletID, txID string, units []domain.ProofUnit, upd repository.ResolveUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.insertProofsLocked(walletID, units, txID); err != nil {
		return err
	}
	return s.resolveLocked(txID, domain.TxCompleted, upd)
}

func (s *Store) ResolveFailed(_ context.Context, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(txID, domain.TxFailed, repository.ResolveUpdate{})
}

func (s *Store) FindPendingMintByQuote(_ context.Context, walletID, quoteID string) (*domain.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.txs {
		if tx.WalletID == walletID && tx.Type == domain.TxMint && tx.Status == domain.TxPending &&
			tx.QuoteID != nil && *tx.QuoteID == quoteID {
			copied := *tx
			return &copied, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *Store) Transactions(_ context.Context, walletID string, query domain.TransactionQuery) ([]domain.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.TransactionRecord
	for _, tx := range s.txs {
		if tx.WalletID != walletID {
			continue
		}
		if query.Type != "" && tx.Type != query.Type {
			continue
		}
		if query.Status != "" && tx.Status != query.Status {
			continue
		}
		out = append(out, *tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if query.Offset > 0 {
		if query.Offset >= len(out) {
			return nil, nil
		}
		out = out[query.Offset:]
	}
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

// RecoverStuckPending mirrors the ledger's crash-recovery sweep.
func (s *Store) RecoverStuckPending(_ context.Context, olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var recovered int
	for _, tx := range s.txs {
		if tx.Status != domain.TxPending || !tx.CreatedAt.Before(cutoff) {
			continue
		}
		if tx.Type != domain.TxSend && tx.Type != domain.TxMelt {
			continue
		}
		for _, p := range s.proofs {
			if p.State == domain.ProofPending && p.SpentByTx != nil && *p.SpentByTx == tx.ID {
				p.State = domain.ProofUnspent
				p.SpentByTx = nil
			}
		}
		if err := s.resolveLocked(tx.ID, domain.TxFailed, repository.ResolveUpdate{}); err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}

// ProofTotals sums a wallet's proof amounts by state, for assertions.
func (s *Store) ProofTotals(walletID string) map[domain.ProofState]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := make(map[domain.ProofState]int64)
	for _, p := range s.proofs {
		if p.WalletID == walletID {
			totals[p.State] += p.Amount
		}
	}
	return totals
}

// Transaction returns a copy of one record, or nil if absent.
func (s *Store) Transaction(txID string) *domain.TransactionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx, ok := s.txs[txID]; ok {
		copied := *tx
		return &copied
	}
	return nil
}

// Backdate shifts a record's created_at, for recovery tests.
func (s *Store) Backdate(txID string, by time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx, ok := s.txs[txID]; ok {
		tx.CreatedAt = tx.CreatedAt.Add(-by)
	}
}

func (s *Store) insertTxLocked(rec *domain.TransactionRecord) error {
	if _, ok := s.txs[rec.ID]; ok {
		return xerrors.ErrDuplicateTransaction
	}
	copied := *rec
	copied.Status = domain.TxPending
	copied.CreatedAt = time.Now()
	copied.UpdatedAt = copied.CreatedAt
	s.txs[rec.ID] = &copied
	return nil
}

func (s *Store) insertProofsLocked(walletID string, units []domain.ProofUnit, txID string) error {
	for _, u := range units {
		if _, ok := s.proofs[u.C]; ok {
			return fmt.Errorf("proof %s: %w", u.C, xerrors.ErrDuplicateProof)
		}
	}
	for _, u := range units {
		created := txID
		s.proofs[u.C] = &domain.Proof{
			ID:          u.C,
			WalletID:    walletID,
			Amount:      u.Amount,
			Secret:      u.Secret,
			C:           u.C,
			KeysetID:    u.KeysetID,
			State:       domain.ProofUnspent,
			CreatedByTx: &created,
			CreatedAt:   time.Now(),
		}
	}
	return nil
}

func (s *Store) resolveLocked(txID string, status domain.TxStatus, upd repository.ResolveUpdate) error {
	tx, ok := s.txs[txID]
	if !ok || tx.Status != domain.TxPending {
		return fmt.Errorf("transaction %s not pending: %w", txID, xerrors.ErrStateMismatch)
	}
	tx.Status = status
	tx.UpdatedAt = time.Now()
	if upd.Amount != nil {
		tx.Amount = *upd.Amount
	}
	if upd.Fee != nil {
		tx.Fee = *upd.Fee
	}
	if upd.Token != nil {
		tx.Token = upd.Token
	}
	return nil
}
