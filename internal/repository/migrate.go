package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS wallets (
		wallet_id TEXT PRIMARY KEY,
		mint_url TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT 'sat',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS proofs (
		id TEXT PRIMARY KEY,
		wallet_id TEXT NOT NULL REFERENCES wallets(wallet_id),
		amount BIGINT NOT NULL CHECK (amount > 0),
		secret TEXT NOT NULL,
		c TEXT NOT NULL,
		keyset_id TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'unspent' CHECK (state IN ('unspent', 'pending', 'spent')),
		created_by_tx TEXT,
		spent_by_tx TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		wallet_id TEXT NOT NULL REFERENCES wallets(wallet_id),
		type TEXT NOT NULL CHECK (type IN ('receive', 'send', 'mint', 'melt')),
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed', 'failed')),
		amount BIGINT NOT NULL DEFAULT 0,
		fee BIGINT NOT NULL DEFAULT 0,
		token TEXT,
		invoice TEXT,
		quote_id TEXT,
		sender TEXT,
		receiver TEXT,
		note TEXT,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_proofs_wallet_state ON proofs (wallet_id, state)`,
	`CREATE INDEX IF NOT EXISTS idx_tx_wallet_created ON transactions (wallet_id, created_at DESC)`,
}

// Migrate applies the schema in a single transaction. Statements are
// idempotent, so running it on every startup is safe.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range migrations {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return tx.Commit(ctx)
}
