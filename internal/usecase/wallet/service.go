package wallet

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aeschylus/botwallets/internal/domain"
	"github.com/aeschylus/botwallets/internal/engine"
	"github.com/aeschylus/botwallets/internal/id"
	"github.com/aeschylus/botwallets/internal/repository"
	"github.com/aeschylus/botwallets/internal/xerrors"
)

// Service is the wallet orchestrator: the single entry point for one wallet
// identity. Every balance-mutating operation runs the same three-phase shape:
// one atomic local step recording a pending transaction (reserving proofs
// when something local is at risk), one engine call outside any local
// transaction, then one atomic local step that commits or rolls back. Engine
// failures always leave the ledger consistent and surface unchanged to the
// caller.
type Service struct {
	id      string
	mintURL string
	unit    string

	store  Store
	engine engine.Engine
	logger *zap.Logger

	Notifier *Notifier
}

func New(ctx context.Context, walletID, mintURL, unit string, store Store, eng engine.Engine, logger *zap.Logger) (*Service, error) {
	if err := store.UpsertWallet(ctx, walletID, mintURL, unit); err != nil {
		return nil, fmt.Errorf("failed to register wallet %s: %w", walletID, err)
	}
	return &Service{
		id:      walletID,
		mintURL: mintURL,
		unit:    unit,
		store:   store,
		engine:  eng,
		logger:  logger,
	}, nil
}

func (s *Service) ID() string { return s.id }

func (s *Service) MintURL() string { return s.mintURL }

func (s *Service) Unit() string { return s.unit }

func (s *Service) Balance(ctx context.Context) (int64, error) {
	return s.store.Balance(ctx, s.id)
}

// Receive redeems an incoming token into fresh local proofs. Nothing local
// is at risk before redemption, so no proofs are reserved; a decode failure
// touches no state at all. The completed amount is what the mint actually
// issued, which can differ from the token's face value.
func (s *Service) Receive(ctx context.Context, token string, memo *domain.Memo) (int64, error) {
	decoded, err := s.engine.DecodeToken(token)
	if err != nil {
		return 0, err
	}
	face := domain.SumUnits(decoded.Proofs)

	rec := s.newRecord(domain.TxReceive, face, memo)
	rec.Token = &token
	if err := s.store.RecordTransaction(ctx, rec); err != nil {
		return 0, err
	}

	fresh, err := s.engine.Redeem(ctx, token)
	if err != nil {
		s.failQuietly(ctx, rec.ID)
		return 0, err
	}

	received := domain.SumUnits(fresh)
	err = s.store.ResolveWithNewProofs(ctx, s.id, rec.ID, fresh, repository.ResolveUpdate{Amount: &received})
	if err != nil {
		return 0, err
	}

	s.notify(ctx, rec.ID)
	return received, nil
}

// Send reserves a covering set of proofs, splits it at the engine, and
// returns the encoded token. On any engine failure the reserved proofs are
// restored and the original error is returned.
func (s *Service) Send(ctx context.Context, amount int64, memo *domain.Memo) (string, error) {
	selected, err := s.selectCovering(ctx, amount)
	if err != nil {
		return "", err
	}

	rec := s.newRecord(domain.TxSend, amount, memo)
	proofIDs := proofIDs(selected)
	if err := s.store.ReserveWithTransaction(ctx, rec, proofIDs); err != nil {
		return "", err
	}

	split, err := s.engine.Split(ctx, amount, units(selected))
	if err != nil {
		s.rollback(ctx, rec.ID, proofIDs)
		return "", err
	}
	token, err := s.engine.EncodeToken(s.mintURL, split.Send, s.unit)
	if err != nil {
		s.rollback(ctx, rec.ID, proofIDs)
		return "", err
	}

	err = s.store.CommitSpend(ctx, s.id, rec.ID, proofIDs, split.Keep,
		domain.TxCompleted, repository.ResolveUpdate{Token: &token})
	if err != nil {
		return "", err
	}

	s.notify(ctx, rec.ID)
	return token, nil
}

// CreateMintInvoice requests a funding quote and records a pending mint
// transaction keyed by the quote id. No proofs are involved yet.
func (s *Service) CreateMintInvoice(ctx context.Context, amount int64) (*domain.MintInvoice, error) {
	quote, err := s.engine.RequestFundingQuote(ctx, amount)
	if err != nil {
		return nil, err
	}

	rec := s.newRecord(domain.TxMint, amount, nil)
	rec.Invoice = &quote.Request
	rec.QuoteID = &quote.QuoteID
	if err := s.store.RecordTransaction(ctx, rec); err != nil {
		return nil, err
	}

	return &domain.MintInvoice{
		QuoteID: quote.QuoteID,
		Invoice: quote.Request,
		Amount:  quote.Amount,
		Expiry:  quote.Expiry,
	}, nil
}

// CheckMintQuote checks a funding quote and, if paid, mints against it. Safe
// to call repeatedly: only a still-pending mint transaction for the quote is
// claimable, so a completed quote (or an unknown one) reports no funds
// instead of minting twice.
func (s *Service) CheckMintQuote(ctx context.Context, quoteID string) (int64, bool, error) {
	quote, err := s.engine.CheckFundingQuote(ctx, quoteID)
	if err != nil {
		return 0, false, err
	}
	if quote.State != engine.QuotePaid {
		return 0, false, nil
	}

	rec, err := s.store.FindPendingMintByQuote(ctx, s.id, quoteID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	minted, err := s.engine.MintAgainstQuote(ctx, quote.Amount, quote)
	if err != nil {
		return 0, false, err
	}

	amount := domain.SumUnits(minted)
	err = s.store.ResolveWithNewProofs(ctx, s.id, rec.ID, minted, repository.ResolveUpdate{Amount: &amount})
	if err != nil {
		return 0, false, err
	}

	s.notify(ctx, rec.ID)
	return amount, true, nil
}

// PayInvoice melts proofs to pay an external invoice. The reserve must cover
// amount plus fee reserve; the recorded fee is the reserve minus whatever the
// mint returned as change. When the engine reports an unpaid outcome without
// erroring, the inputs are still consumed and the transaction fails.
func (s *Service) PayInvoice(ctx context.Context, invoice string, memo *domain.Memo) (*domain.MeltResult, error) {
	quote, err := s.engine.RequestPaymentQuote(ctx, invoice)
	if err != nil {
		return nil, err
	}
	required := quote.Amount + quote.FeeReserve

	selected, err := s.selectCovering(ctx, required)
	if err != nil {
		return nil, err
	}

	rec := s.newRecord(domain.TxMelt, quote.Amount, memo)
	rec.Invoice = &invoice
	rec.QuoteID = &quote.QuoteID
	proofIDs := proofIDs(selected)
	if err := s.store.ReserveWithTransaction(ctx, rec, proofIDs); err != nil {
		return nil, err
	}

	result, err := s.engine.Pay(ctx, quote, units(selected))
	if err != nil {
		s.rollback(ctx, rec.ID, proofIDs)
		return nil, err
	}

	change := domain.SumUnits(result.Change)
	fee := quote.FeeReserve - change
	status := domain.TxCompleted
	if !result.Paid {
		status = domain.TxFailed
	}
	err = s.store.CommitSpend(ctx, s.id, rec.ID, proofIDs, result.Change,
		status, repository.ResolveUpdate{Fee: &fee})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, rec.ID)
	melt := &domain.MeltResult{
		Paid:   result.Paid,
		Fee:    fee,
		Change: change,
	}
	if result.Preimage != "" {
		melt.Preimage = &result.Preimage
	}
	return melt, nil
}

func (s *Service) Transactions(ctx context.Context, query domain.TransactionQuery) ([]domain.TransactionRecord, error) {
	return s.store.Transactions(ctx, s.id, query)
}

func (s *Service) Info(ctx context.Context) (*domain.WalletInfo, error) {
	meta, err := s.store.GetWallet(ctx, s.id)
	if err != nil {
		return nil, err
	}
	balance, err := s.store.Balance(ctx, s.id)
	if err != nil {
		return nil, err
	}
	return &domain.WalletInfo{
		ID:        meta.ID,
		MintURL:   meta.MintURL,
		Unit:      meta.Unit,
		Balance:   balance,
		CreatedAt: meta.CreatedAt,
	}, nil
}

// selectCovering checks the balance and picks a covering proof set, turning
// either shortfall into an InsufficientBalanceError with figures.
func (s *Service) selectCovering(ctx context.Context, required int64) ([]domain.Proof, error) {
	balance, err := s.store.Balance(ctx, s.id)
	if err != nil {
		return nil, err
	}
	if balance < required {
		return nil, &xerrors.InsufficientBalanceError{Required: required, Available: balance}
	}
	selected, err := s.store.SelectForAmount(ctx, s.id, required)
	if errors.Is(err, xerrors.ErrInsufficientFunds) {
		return nil, &xerrors.InsufficientBalanceError{Required: required, Available: balance}
	}
	if err != nil {
		return nil, err
	}
	// A non-positive target selects nothing; without this check it would
	// reserve nothing and still run the engine call.
	if len(selected) == 0 {
		return nil, &xerrors.InsufficientBalanceError{Required: required, Available: balance}
	}
	return selected, nil
}

// rollback restores reserved proofs after an engine failure. The engine's
// error is what the caller must see, so a rollback failure is only logged;
// the recovery sweep will catch anything left behind.
func (s *Service) rollback(ctx context.Context, txID string, proofIDs []string) {
	if err := s.store.RollbackSpend(ctx, txID, proofIDs); err != nil {
		s.logger.Error("failed to roll back reserved proofs",
			zap.String("wallet_id", s.id),
			zap.String("tx_id", txID),
			zap.Error(err))
	}
}

func (s *Service) failQuietly(ctx context.Context, txID string) {
	if err := s.store.ResolveFailed(ctx, txID); err != nil {
		s.logger.Error("failed to mark transaction failed",
			zap.String("wallet_id", s.id),
			zap.String("tx_id", txID),
			zap.Error(err))
	}
}

func (s *Service) newRecord(txType domain.TxType, amount int64, memo *domain.Memo) *domain.TransactionRecord {
	rec := &domain.TransactionRecord{
		ID:       id.NewTxID(),
		WalletID: s.id,
		Type:     txType,
		Status:   domain.TxPending,
		Amount:   amount,
	}
	if memo != nil {
		if memo.Sender != "" {
			rec.Sender = &memo.Sender
		}
		if memo.Receiver != "" {
			rec.Receiver = &memo.Receiver
		}
		if memo.Note != "" {
			rec.Note = &memo.Note
		}
		rec.Metadata = memo.Metadata
	}
	return rec
}

func (s *Service) notify(ctx context.Context, txID string) {
	if s.Notifier == nil {
		return
	}
	balance, err := s.store.Balance(ctx, s.id)
	if err != nil {
		s.logger.Warn("failed to read balance for notification", zap.Error(err))
		return
	}
	s.Notifier.NotifyTransaction(s.id, txID, balance)
}

func proofIDs(proofs []domain.Proof) []string {
	ids := make([]string, len(proofs))
	for i, p := range proofs {
		ids[i] = p.ID
	}
	return ids
}

func units(proofs []domain.Proof) []domain.ProofUnit {
	out := make([]domain.ProofUnit, len(proofs))
	for i, p := range proofs {
		out[i] = p.Unit()
	}
	return out
}
