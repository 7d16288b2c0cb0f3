// Package engine defines the capability interface the wallet orchestrator
// consumes for all cryptographic/network token work. The ledger never calls
// a mint directly; it only sees this interface.
package engine

import (
	"context"

	"github.com/aeschylus/botwallets/internal/domain"
)

type QuoteState string

const (
	QuoteUnpaid QuoteState = "UNPAID"
	QuotePaid   QuoteState = "PAID"
	QuoteIssued QuoteState = "ISSUED"
)

type DecodedToken struct {
	Mint   string
	Unit   string
	Proofs []domain.ProofUnit
}

type FundingQuote struct {
	QuoteID string
	Request string
	Amount  int64
	Expiry  int64
	State   QuoteState
}

type PaymentQuote struct {
	QuoteID    string
	Amount     int64
	FeeReserve int64
	Expiry     int64
}

type SplitResult struct {
	Keep []domain.ProofUnit
	Send []domain.ProofUnit
}

type PaymentResult struct {
	Paid     bool
	Preimage string
	Change   []domain.ProofUnit
}

// Engine performs the external cryptographic/network work. Every call may
// fail with an engine-specific error; calls are blocking and the orchestrator
// never retries them on its own.
type Engine interface {
	// DecodeToken parses a token string without touching the network.
	DecodeToken(token string) (*DecodedToken, error)
	// EncodeToken serializes proof units into a transferable token string.
	EncodeToken(mint string, proofs []domain.ProofUnit, unit string) (string, error)

	// Redeem swaps a received token's proofs for fresh ones owned locally.
	Redeem(ctx context.Context, token string) ([]domain.ProofUnit, error)
	// Split partitions the given proofs into a send set covering amount and
	// a keep set returned to the sender.
	Split(ctx context.Context, amount int64, proofs []domain.ProofUnit) (*SplitResult, error)

	RequestFundingQuote(ctx context.Context, amount int64) (*FundingQuote, error)
	CheckFundingQuote(ctx context.Context, quoteID string) (*FundingQuote, error)
	MintAgainstQuote(ctx context.Context, amount int64, quote *FundingQuote) ([]domain.ProofUnit, error)

	RequestPaymentQuote(ctx context.Context, invoice string) (*PaymentQuote, error)
	Pay(ctx context.Context, quote *PaymentQuote, proofs []domain.ProofUnit) (*PaymentResult, error)
}
