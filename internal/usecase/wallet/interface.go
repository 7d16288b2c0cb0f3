package wallet

import (
	"context"

	"github.com/aeschylus/botwallets/internal/domain"
	"github.com/aeschylus/botwallets/internal/repository"
)

// Store is the transactional ledger the orchestrator drives. Each method is
// one indivisible local step; *repository.Ledger is the production
// implementation.
type Store interface {
	Balance(ctx context.Context, walletID string) (int64, error)
	SelectForAmount(ctx context.Context, walletID string, target int64) ([]domain.Proof, error)

	UpsertWallet(ctx context.Context, walletID, mintURL, unit string) error
	GetWallet(ctx context.Context, walletID string) (*domain.WalletMeta, error)

	RecordTransaction(ctx context.Context, rec *domain.TransactionRecord) error
	ReserveWithTransaction(ctx context.Context, rec *domain.TransactionRecord, proofIDs []string) error
	CommitSpend(ctx context.Context, walletID, txID string, proofIDs []string, change []domain.ProofUnit, status domain.TxStatus, upd repository.ResolveUpdate) error
	RollbackSpend(ctx context.Context, txID string, proofIDs []string) error
	ResolveWithNewProofs(ctx context.Context, walletID, txID string, units []domain.ProofUnit, upd repository.ResolveUpdate) error
	ResolveFailed(ctx context.Context, txID string) error

	FindPendingMintByQuote(ctx context.Context, walletID, quoteID string) (*domain.TransactionRecord, error)
	Transactions(ctx context.Context, walletID string, query domain.TransactionQuery) ([]domain.TransactionRecord, error)
}
