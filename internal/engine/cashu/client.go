// Package cashu is the concrete Token Engine adapter for Cashu mints: the
// token string codec plus the mint's bolt11 REST endpoints. Blind-signature
// construction is injected via Blinder; this package never does key math.
package cashu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aeschylus/botwallets/internal/domain"
	"github.com/aeschylus/botwallets/internal/engine"
	"github.com/aeschylus/botwallets/internal/xerrors"
)

var errNoBlinder = errors.New("no blinder configured: operation requires blind-signature support")

type Client struct {
	mintURL string
	unit    string
	blinder Blinder
	http    *http.Client
	logger  *zap.Logger

	mu       sync.Mutex
	keysetID string
}

var _ engine.Engine = (*Client)(nil)

// NewClient builds an engine for one (mint, unit) pair. The blinder may be
// nil, in which case only the codec and quote operations are available.
func NewClient(mintURL, unit string, blinder Blinder, logger *zap.Logger) *Client {
	return &Client{
		mintURL: strings.TrimRight(mintURL, "/"),
		unit:    unit,
		blinder: blinder,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

func (c *Client) DecodeToken(token string) (*engine.DecodedToken, error) {
	return DecodeToken(token)
}

func (c *Client) EncodeToken(mint string, proofs []domain.ProofUnit, unit string) (string, error) {
	return EncodeToken(mint, proofs, unit)
}

func (c *Client) Redeem(ctx context.Context, token string) ([]domain.ProofUnit, error) {
	decoded, err := DecodeToken(token)
	if err != nil {
		return nil, err
	}
	return c.swap(ctx, decoded.Proofs, splitAmount(domain.SumUnits(decoded.Proofs)))
}

func (c *Client) Split(ctx context.Context, amount int64, proofs []domain.ProofUnit) (*engine.SplitResult, error) {
	total := domain.SumUnits(proofs)
	if amount > total {
		return nil, fmt.Errorf("split amount %d exceeds input total %d", amount, total)
	}

	keepAmounts := splitAmount(total - amount)
	sendAmounts := splitAmount(amount)
	fresh, err := c.swap(ctx, proofs, append(append([]int64{}, keepAmounts...), sendAmounts...))
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(keepAmounts)+len(sendAmounts) {
		return nil, fmt.Errorf("mint returned %d signatures for %d outputs", len(fresh), len(keepAmounts)+len(sendAmounts))
	}
	return &engine.SplitResult{
		Keep: fresh[:len(keepAmounts)],
		Send: fresh[len(keepAmounts):],
	}, nil
}

func (c *Client) RequestFundingQuote(ctx context.Context, amount int64) (*engine.FundingQuote, error) {
	var resp mintQuoteResponse
	err := c.post(ctx, "/v1/mint/quote/bolt11", map[string]any{
		"unit":   c.unit,
		"amount": amount,
	}, &resp)
	if err != nil {
		return nil, err
	}
	q := resp.toFundingQuote()
	if q.Amount == 0 {
		q.Amount = amount
	}
	return q, nil
}

func (c *Client) CheckFundingQuote(ctx context.Context, quoteID string) (*engine.FundingQuote, error) {
	var resp mintQuoteResponse
	if err := c.get(ctx, "/v1/mint/quote/bolt11/"+quoteID, &resp); err != nil {
		return nil, err
	}
	return resp.toFundingQuote(), nil
}

func (c *Client) MintAgainstQuote(ctx context.Context, amount int64, quote *engine.FundingQuote) ([]domain.ProofUnit, error) {
	if c.blinder == nil {
		return nil, errNoBlinder
	}
	keyset, err := c.activeKeyset(ctx)
	if err != nil {
		return nil, err
	}
	outputs, err := c.blinder.Blind(keyset, splitAmount(amount))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Signatures []BlindSignature `json:"signatures"`
	}
	err = c.post(ctx, "/v1/mint/bolt11", map[string]any{
		"quote":   quote.QuoteID,
		"outputs": outputs,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return c.blinder.Unblind(resp.Signatures)
}

func (c *Client) RequestPaymentQuote(ctx context.Context, invoice string) (*engine.PaymentQuote, error) {
	var resp struct {
		Quote      string `json:"quote"`
		Amount     int64  `json:"amount"`
		FeeReserve int64  `json:"fee_reserve"`
		Expiry     int64  `json:"expiry"`
	}
	err := c.post(ctx, "/v1/melt/quote/bolt11", map[string]any{
		"unit":    c.unit,
		"request": invoice,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &engine.PaymentQuote{
		QuoteID:    resp.Quote,
		Amount:     resp.Amount,
		FeeReserve: resp.FeeReserve,
		Expiry:     resp.Expiry,
	}, nil
}

func (c *Client) Pay(ctx context.Context, quote *engine.PaymentQuote, proofs []domain.ProofUnit) (*engine.PaymentResult, error) {
	body := map[string]any{
		"quote":  quote.QuoteID,
		"inputs": proofs,
	}

	// Blank outputs let the mint return overpaid fee reserve as change.
	if c.blinder != nil && quote.FeeReserve > 0 {
		keyset, err := c.activeKeyset(ctx)
		if err != nil {
			return nil, err
		}
		blanks, err := c.blinder.Blind(keyset, blankAmounts(quote.FeeReserve))
		if err != nil {
			return nil, err
		}
		body["outputs"] = blanks
	}

	var resp struct {
		State    string           `json:"state"`
		Preimage string           `json:"payment_preimage"`
		Change   []BlindSignature `json:"change"`
	}
	if err := c.post(ctx, "/v1/melt/bolt11", body, &resp); err != nil {
		return nil, err
	}

	result := &engine.PaymentResult{
		Paid:     resp.State == string(engine.QuotePaid),
		Preimage: resp.Preimage,
	}
	if len(resp.Change) > 0 && c.blinder != nil {
		change, err := c.blinder.Unblind(resp.Change)
		if err != nil {
			return nil, err
		}
		result.Change = change
	}
	return result, nil
}

// swap trades input proofs for freshly signed outputs of the given
// denominations.
func (c *Client) swap(ctx context.Context, inputs []domain.ProofUnit, amounts []int64) ([]domain.ProofUnit, error) {
	if c.blinder == nil {
		return nil, errNoBlinder
	}
	keyset, err := c.activeKeyset(ctx)
	if err != nil {
		return nil, err
	}
	outputs, err := c.blinder.Blind(keyset, amounts)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Signatures []BlindSignature `json:"signatures"`
	}
	err = c.post(ctx, "/v1/swap", map[string]any{
		"inputs":  inputs,
		"outputs": outputs,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return c.blinder.Unblind(resp.Signatures)
}

// activeKeyset resolves and caches the mint's active keyset id for our unit.
func (c *Client) activeKeyset(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keysetID != "" {
		return c.keysetID, nil
	}

	var resp struct {
		Keysets []struct {
			ID     string `json:"id"`
			Unit   string `json:"unit"`
			Active bool   `json:"active"`
		} `json:"keysets"`
	}
	if err := c.get(ctx, "/v1/keysets", &resp); err != nil {
		return "", err
	}
	for _, ks := range resp.Keysets {
		if ks.Active && ks.Unit == c.unit {
			c.keysetID = ks.ID
			c.logger.Debug("resolved active keyset",
				zap.String("mint", c.mintURL),
				zap.String("keyset", ks.ID))
			return c.keysetID, nil
		}
	}
	return "", fmt.Errorf("mint %s has no active keyset for unit %s", c.mintURL, c.unit)
}

type mintQuoteResponse struct {
	Quote   string `json:"quote"`
	Request string `json:"request"`
	Amount  int64  `json:"amount"`
	State   string `json:"state"`
	Paid    bool   `json:"paid"` // pre-NUT-04-state mints
	Expiry  int64  `json:"expiry"`
}

func (r *mintQuoteResponse) toFundingQuote() *engine.FundingQuote {
	state := engine.QuoteState(r.State)
	if r.State == "" {
		if r.Paid {
			state = engine.QuotePaid
		} else {
			state = engine.QuoteUnpaid
		}
	}
	return &engine.FundingQuote{
		QuoteID: r.Quote,
		Request: r.Request,
		Amount:  r.Amount,
		Expiry:  r.Expiry,
		State:   state,
	}
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.mintURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.mintURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &xerrors.EngineUnreachableError{Endpoint: c.mintURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &xerrors.EngineUnreachableError{Endpoint: c.mintURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var mintErr struct {
			Detail string `json:"detail"`
			Code   int    `json:"code"`
		}
		if json.Unmarshal(raw, &mintErr) == nil && mintErr.Detail != "" {
			return fmt.Errorf("mint rejected %s: %s", req.URL.Path, mintErr.Detail)
		}
		return fmt.Errorf("mint rejected %s: status %d", req.URL.Path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode mint response from %s: %w", req.URL.Path, err)
		}
	}
	return nil
}
