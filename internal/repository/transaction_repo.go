package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aeschylus/botwallets/internal/domain"
	"github.com/aeschylus/botwallets/internal/xerrors"
)

// ResolveUpdate carries the optional field updates applied when a pending
// transaction reaches its terminal status.
type ResolveUpdate struct {
	Amount *int64
	Fee    *int64
	Token  *string
}

type TransactionRepository struct{}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{}
}

// Create inserts a new row with status pending. A duplicate id errors.
func (r *TransactionRepository) Create(ctx context.Context, q DBTX, rec *domain.TransactionRecord) error {
	_, err := q.Exec(ctx,
		`INSERT INTO transactions (id, wallet_id, type, status, amount, fee, token, invoice, quote_id, sender, receiver, note, metadata)
		 VALUES ($1, $2, $3, 'pending', $4, 0, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.WalletID, rec.Type, rec.Amount,
		rec.Token, rec.Invoice, rec.QuoteID,
		rec.Sender, rec.Receiver, rec.Note, rec.Metadata,
	)
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return fmt.Errorf("transaction %s: %w", rec.ID, xerrors.ErrDuplicateTransaction)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// Resolve moves a pending transaction to its terminal status exactly once,
// optionally updating amount/fee/token. Resolving a record that is missing
// or already terminal is an error.
func (r *TransactionRepository) Resolve(ctx context.Context, q DBTX, txID string, status domain.TxStatus, upd ResolveUpdate) error {
	sql := `UPDATE transactions SET status = $1, updated_at = now()`
	args := []any{status}

	if upd.Amount != nil {
		args = append(args, *upd.Amount)
		sql += fmt.Sprintf(", amount = $%d", len(args))
	}
	if upd.Fee != nil {
		args = append(args, *upd.Fee)
		sql += fmt.Sprintf(", fee = $%d", len(args))
	}
	if upd.Token != nil {
		args = append(args, *upd.Token)
		sql += fmt.Sprintf(", token = $%d", len(args))
	}

	args = append(args, txID)
	sql += fmt.Sprintf(" WHERE id = $%d AND status = 'pending'", len(args))

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to resolve transaction: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("transaction %s not pending: %w", txID, xerrors.ErrStateMismatch)
	}
	return nil
}

// Get returns a transaction by id.
func (r *TransactionRepository) Get(ctx context.Context, q DBTX, txID string) (*domain.TransactionRecord, error) {
	row := q.QueryRow(ctx, selectTransaction+` WHERE id = $1`, txID)
	rec, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	return rec, err
}

// FindPendingMintByQuote matches only still-pending mint transactions, which
// is what makes quote claiming idempotent: once a claim completes the record,
// later claims find nothing and mint nothing.
func (r *TransactionRepository) FindPendingMintByQuote(ctx context.Context, q DBTX, walletID, quoteID string) (*domain.TransactionRecord, error) {
	row := q.QueryRow(ctx,
		selectTransaction+` WHERE wallet_id = $1 AND quote_id = $2 AND type = 'mint' AND status = 'pending'`,
		walletID, quoteID,
	)
	rec, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	return rec, err
}

// List returns a wallet's transactions most-recent-first with optional
// type/status filters and limit/offset paging.
func (r *TransactionRepository) List(ctx context.Context, q DBTX, walletID string, query domain.TransactionQuery) ([]domain.TransactionRecord, error) {
	sql := selectTransaction + ` WHERE wallet_id = $1`
	args := []any{walletID}

	if query.Type != "" {
		args = append(args, query.Type)
		sql += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if query.Status != "" {
		args = append(args, query.Status)
		sql += fmt.Sprintf(" AND status = $%d", len(args))
	}

	sql += " ORDER BY created_at DESC"

	if query.Limit > 0 {
		args = append(args, query.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if query.Offset > 0 {
		args = append(args, query.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

const selectTransaction = `SELECT id, wallet_id, type, status, amount, fee, token, invoice, quote_id, sender, receiver, note, metadata, created_at, updated_at
	FROM transactions`

func scanTransaction(row pgx.Row) (*domain.TransactionRecord, error) {
	var rec domain.TransactionRecord
	err := row.Scan(
		&rec.ID, &rec.WalletID, &rec.Type, &rec.Status, &rec.Amount, &rec.Fee,
		&rec.Token, &rec.Invoice, &rec.QuoteID,
		&rec.Sender, &rec.Receiver, &rec.Note, &rec.Metadata,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
