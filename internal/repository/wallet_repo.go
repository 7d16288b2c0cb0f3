package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aeschylus/botwallets/internal/domain"
	"github.com/aeschylus/botwallets/internal/xerrors"
)

type WalletRepository struct{}

func NewWalletRepository() *WalletRepository {
	return &WalletRepository{}
}

// Upsert creates the wallet row on first use and touches updated_at after.
func (r *WalletRepository) Upsert(ctx context.Context, q DBTX, walletID, mintURL, unit string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO wallets (wallet_id, mint_url, unit)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (wallet_id) DO UPDATE SET updated_at = now()`,
		walletID, mintURL, unit,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert wallet: %w", err)
	}
	return nil
}

func (r *WalletRepository) Get(ctx context.Context, q DBTX, walletID string) (*domain.WalletMeta, error) {
	var m domain.WalletMeta
	err := q.QueryRow(ctx,
		`SELECT wallet_id, mint_url, unit, created_at, updated_at FROM wallets WHERE wallet_id = $1`,
		walletID,
	).Scan(&m.ID, &m.MintURL, &m.Unit, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
