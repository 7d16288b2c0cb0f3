// Package fakemint is an in-memory Token Engine: a simulated mint with the
// same observable behavior an orchestrator cares about (fresh proof issuance,
// double-spend rejection, quote lifecycle, change return). It backs the test
// suite and the fake engine mode for local development.
package fakemint

import (
	"context"
	"fmt"
	"sync"

	"github.com/aeschylus/botwallets/internal/domain"
	"github.com/aeschylus/botwallets/internal/engine"
	"github.com/aeschylus/botwallets/internal/engine/cashu"
)

const (
	MintURL  = "fake://mint"
	keysetID = "00fakekeyset00"
)

type Mint struct {
	unit string

	mu       sync.Mutex
	seq      uint64
	live     map[string]bool // secret -> spendable
	funding  map[string]*engine.FundingQuote
	invoices map[string]int64
	failures map[string]error

	// FeeReserve is quoted on every payment; ChangeReturn is handed back as
	// change units on Pay (capped at FeeReserve).
	FeeReserve   int64
	ChangeReturn int64
}

var _ engine.Engine = (*Mint)(nil)

func New(unit string) *Mint {
	return &Mint{
		unit:       unit,
		live:       make(map[string]bool),
		funding:    make(map[string]*engine.FundingQuote),
		invoices:   make(map[string]int64),
		failures:   make(map[string]error),
		FeeReserve: 1,
	}
}

// FailNext makes the next call to the named operation (redeem, split, mint,
// pay, fundingQuote, checkQuote, paymentQuote) return err.
func (m *Mint) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

// SettleFunding marks a funding quote as paid, as if the invoice settled.
func (m *Mint) SettleFunding(quoteID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.funding[quoteID]; ok && q.State == engine.QuoteUnpaid {
		q.State = engine.QuotePaid
	}
}

// SetInvoiceAmount fixes the amount quoted for a payment invoice.
func (m *Mint) SetInvoiceAmount(invoice string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[invoice] = amount
}

func (m *Mint) DecodeToken(token string) (*engine.DecodedToken, error) {
	return cashu.DecodeToken(token)
}

func (m *Mint) EncodeToken(mint string, proofs []domain.ProofUnit, unit string) (string, error) {
	return cashu.EncodeToken(mint, proofs, unit)
}

func (m *Mint) Redeem(ctx context.Context, token string) ([]domain.ProofUnit, error) {
	decoded, err := cashu.DecodeToken(token)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("redeem"); err != nil {
		return nil, err
	}
	if err := m.consume(decoded.Proofs, true); err != nil {
		return nil, err
	}
	return m.issue(domain.SumUnits(decoded.Proofs)), nil
}

func (m *Mint) Split(ctx context.Context, amount int64, proofs []domain.ProofUnit) (*engine.SplitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("split"); err != nil {
		return nil, err
	}

	total := domain.SumUnits(proofs)
	if amount > total {
		return nil, fmt.Errorf("split amount %d exceeds input total %d", amount, total)
	}
	if err := m.consume(proofs, false); err != nil {
		return nil, err
	}
	return &engine.SplitResult{
		Keep: m.issue(total - amount),
		Send: m.issue(amount),
	}, nil
}

func (m *Mint) RequestFundingQuote(ctx context.Context, amount int64) (*engine.FundingQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("fundingQuote"); err != nil {
		return nil, err
	}

	m.seq++
	q := &engine.FundingQuote{
		QuoteID: fmt.Sprintf("fq_%d", m.seq),
		Request: fmt.Sprintf("lnfake_%d_%d", m.seq, amount),
		Amount:  amount,
		Expiry:  600,
		State:   engine.QuoteUnpaid,
	}
	m.funding[q.QuoteID] = q
	return q, nil
}

func (m *Mint) CheckFundingQuote(ctx context.Context, quoteID string) (*engine.FundingQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("checkQuote"); err != nil {
		return nil, err
	}

	q, ok := m.funding[quoteID]
	if !ok {
		return nil, fmt.Errorf("unknown mint quote %s", quoteID)
	}
	copied := *q
	return &copied, nil
}

func (m *Mint) MintAgainstQuote(ctx context.Context, amount int64, quote *engine.FundingQuote) ([]domain.ProofUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("mint"); err != nil {
		return nil, err
	}

	q, ok := m.funding[quote.QuoteID]
	if !ok {
		return nil, fmt.Errorf("unknown mint quote %s", quote.QuoteID)
	}
	switch q.State {
	case engine.QuotePaid:
		q.State = engine.QuoteIssued
		return m.issue(amount), nil
	case engine.QuoteIssued:
		return nil, fmt.Errorf("mint quote %s already issued", quote.QuoteID)
	default:
		return nil, fmt.Errorf("mint quote %s not paid", quote.QuoteID)
	}
}

func (m *Mint) RequestPaymentQuote(ctx context.Context, invoice string) (*engine.PaymentQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("paymentQuote"); err != nil {
		return nil, err
	}

	amount, ok := m.invoices[invoice]
	if !ok {
		amount = 10
	}
	m.seq++
	return &engine.PaymentQuote{
		QuoteID:    fmt.Sprintf("pq_%d", m.seq),
		Amount:     amount,
		FeeReserve: m.FeeReserve,
		Expiry:     600,
	}, nil
}

func (m *Mint) Pay(ctx context.Context, quote *engine.PaymentQuote, proofs []domain.ProofUnit) (*engine.PaymentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("pay"); err != nil {
		return nil, err
	}

	if err := m.consume(proofs, false); err != nil {
		return nil, err
	}
	change := m.ChangeReturn
	if change > quote.FeeReserve {
		change = quote.FeeReserve
	}
	preimage := fmt.Sprintf("preimage_%s", quote.QuoteID)
	return &engine.PaymentResult{
		Paid:     true,
		Preimage: preimage,
		Change:   m.issue(change),
	}, nil
}

func (m *Mint) takeFailure(op string) error {
	if err, ok := m.failures[op]; ok {
		delete(m.failures, op)
		return err
	}
	return nil
}

// consume invalidates input proofs. Unknown secrets are accepted when
// external is set (a received token minted elsewhere), rejected otherwise.
func (m *Mint) consume(proofs []domain.ProofUnit, external bool) error {
	for _, p := range proofs {
		if spendable, known := m.live[p.Secret]; known && !spendable {
			return fmt.Errorf("proof already spent")
		} else if !known && !external {
			return fmt.Errorf("unknown proof")
		}
	}
	for _, p := range proofs {
		m.live[p.Secret] = false
	}
	return nil
}

// issue creates fresh power-of-two denominated units totalling amount.
func (m *Mint) issue(amount int64) []domain.ProofUnit {
	var units []domain.ProofUnit
	for bit := int64(1); amount > 0; bit <<= 1 {
		if amount&bit != 0 {
			m.seq++
			secret := fmt.Sprintf("secret_%d", m.seq)
			units = append(units, domain.ProofUnit{
				KeysetID: keysetID,
				Amount:   bit,
				Secret:   secret,
				C:        fmt.Sprintf("02c%012d", m.seq),
			})
			m.live[secret] = true
			amount &^= bit
		}
	}
	return units
}
