package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/aeschylus/botwallets/internal/domain"
	"github.com/aeschylus/botwallets/internal/xerrors"
)

// ProofRepository is pure data access over the proofs table. State-advancing
// methods take the enclosing transaction explicitly; callers own atomicity.
type ProofRepository struct{}

func NewProofRepository() *ProofRepository {
	return &ProofRepository{}
}

// Balance sums unspent proof amounts for a wallet. Never negative.
func (r *ProofRepository) Balance(ctx context.Context, q DBTX, walletID string) (int64, error) {
	var total int64
	err := q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM proofs WHERE wallet_id = $1 AND state = 'unspent'`,
		walletID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to compute balance: %w", err)
	}
	return total, nil
}

// Unspent returns all currently spendable proofs for a wallet.
func (r *ProofRepository) Unspent(ctx context.Context, q DBTX, walletID string) ([]domain.Proof, error) {
	rows, err := q.Query(ctx,
		`SELECT id, wallet_id, amount, secret, c, keyset_id, state, created_by_tx, spent_by_tx, created_at
		 FROM proofs WHERE wallet_id = $1 AND state = 'unspent'`,
		walletID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proofs []domain.Proof
	for rows.Next() {
		var p domain.Proof
		if err := rows.Scan(&p.ID, &p.WalletID, &p.Amount, &p.Secret, &p.C, &p.KeysetID,
			&p.State, &p.CreatedByTx, &p.SpentByTx, &p.CreatedAt); err != nil {
			return nil, err
		}
		proofs = append(proofs, p)
	}
	return proofs, rows.Err()
}

// SelectForAmount performs greedy ascending coin selection: smallest proofs
// first, stopping as soon as the running sum covers target. This consumes
// fragmented value eagerly at the cost of sometimes using more proofs than
// strictly necessary. Returns ErrInsufficientFunds when the wallet's whole
// unspent total is below target.
func (r *ProofRepository) SelectForAmount(ctx context.Context, q DBTX, walletID string, target int64) ([]domain.Proof, error) {
	all, err := r.Unspent(ctx, q, walletID)
	if err != nil {
		return nil, err
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

// Insert adds new proofs in state unspent, attributed to txID. The proof id
// is the unit's commitment value; a duplicate is a double-insert and errors.
func (r *ProofRepository) Insert(ctx context.Context, q DBTX, walletID string, units []domain.ProofUnit, txID string) error {
	for _, u := range units {
		_, err := q.Exec(ctx,
			`INSERT INTO proofs (id, wallet_id, amount, secret, c, keyset_id, state, created_by_tx)
			 VALUES ($1, $2, $3, $4, $5, $6, 'unspent', $7)`,
			u.C, walletID, u.Amount, u.Secret, u.C, u.KeysetID, txID,
		)
		if err != nil {
			if xerrors.IsUniqueViolation(err) {
				return fmt.Errorf("proof %s: %w", u.C, xerrors.ErrDuplicateProof)
			}
			return fmt.Errorf("failed to insert proof: %w", err)
		}
	}
	return nil
}

// Reserve transitions the listed proofs unspent -> pending and stamps the
// reserving transaction. If any listed proof is not currently unspent the
// whole reservation conflicts; the enclosing transaction must roll back.
func (r *ProofRepository) Reserve(ctx context.Context, q DBTX, proofIDs []string, txID string) error {
	tag, err := q.Exec(ctx,
		`UPDATE proofs SET state = 'pending', spent_by_tx = $1 WHERE id = ANY($2) AND state = 'unspent'`,
		txID, proofIDs,
	)
	if err != nil {
		return fmt.Errorf("failed to reserve proofs: %w", err)
	}
	if tag.RowsAffected() != int64(len(proofIDs)) {
		return fmt.Errorf("reserved %d of %d proofs: %w", tag.RowsAffected(), len(proofIDs), xerrors.ErrReservationConflict)
	}
	return nil
}

// FinalizeSpent transitions listed proofs pending -> spent. Every listed
// proof must be pending with a matching reservation; a mismatch is an error,
// not a silent skip.
func (r *ProofRepository) FinalizeSpent(ctx context.Context, q DBTX, proofIDs []string, txID string) error {
	tag, err := q.Exec(ctx,
		`UPDATE proofs SET state = 'spent' WHERE id = ANY($1) AND state = 'pending' AND spent_by_tx = $2`,
		proofIDs, txID,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize proofs: %w", err)
	}
	if tag.RowsAffected() != int64(len(proofIDs)) {
		return fmt.Errorf("finalized %d of %d proofs: %w", tag.RowsAffected(), len(proofIDs), xerrors.ErrStateMismatch)
	}
	return nil
}

// Rollback restores listed pending proofs to unspent and clears the
// reservation. Used only on operation failure.
func (r *ProofRepository) Rollback(ctx context.Context, q DBTX, proofIDs []string) error {
	tag, err := q.Exec(ctx,
		`UPDATE proofs SET state = 'unspent', spent_by_tx = NULL WHERE id = ANY($1) AND state = 'pending'`,
		proofIDs,
	)
	if err != nil {
		return fmt.Errorf("failed to roll back proofs: %w", err)
	}
	if tag.RowsAffected() != int64(len(proofIDs)) {
		return fmt.Errorf("rolled back %d of %d proofs: %w", tag.RowsAffected(), len(proofIDs), xerrors.ErrStateMismatch)
	}
	return nil
}
