package cashu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aeschylus/botwallets/internal/domain"
	"github.com/aeschylus/botwallets/internal/engine"
	"github.com/aeschylus/botwallets/internal/xerrors"
)

// stubBlinder echoes the requested amounts back as proof units, keeping the
// wire flow intact without any key math.
type stubBlinder struct {
	seq int
}

func (b *stubBlinder) Blind(keysetID string, amounts []int64) ([]BlindedMessage, error) {
	out := make([]BlindedMessage, len(amounts))
	for i, a := range amounts {
		b.seq++
		out[i] = BlindedMessage{Amount: a, KeysetID: keysetID, B: fmt.Sprintf("02b%06d", b.seq)}
	}
	return out, nil
}

func (b *stubBlinder) Unblind(sigs []BlindSignature) ([]domain.ProofUnit, error) {
	out := make([]domain.ProofUnit, len(sigs))
	for i, s := range sigs {
		b.seq++
		out[i] = domain.ProofUnit{
			KeysetID: s.KeysetID,
			Amount:   s.Amount,
			Secret:   fmt.Sprintf("secret%06d", b.seq),
			C:        s.C,
		}
	}
	return out, nil
}

func newMintServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/keysets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"keysets": []map[string]any{
				{"id": "00ad268c4d1f5826", "unit": "sat", "active": true},
				{"id": "00deadkeyset0000", "unit": "sat", "active": false},
			},
		})
	})
	for path, h := range handlers {
		mux.HandleFunc(path, h)
	}
	return httptest.NewServer(mux)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestRequestFundingQuote(t *testing.T) {
	srv := newMintServer(t, map[string]http.HandlerFunc{
		"/v1/mint/quote/bolt11": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "sat", body["unit"])
			assert.Equal(t, float64(100), body["amount"])
			writeJSON(t, w, map[string]any{
				"quote":   "q1",
				"request": "lnbc100n1...",
				"state":   "UNPAID",
				"expiry":  1700000000,
			})
		},
	})
	defer srv.Close()

	c := NewClient(srv.URL, "sat", nil, zap.NewNop())
	quote, err := c.RequestFundingQuote(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, "q1", quote.QuoteID)
	assert.Equal(t, "lnbc100n1...", quote.Request)
	assert.Equal(t, engine.QuoteUnpaid, quote.State)
	// The mint omitted the amount; the request amount fills it in.
	assert.Equal(t, int64(100), quote.Amount)
}

func TestCheckFundingQuoteLegacyPaidField(t *testing.T) {
	srv := newMintServer(t, map[string]http.HandlerFunc{
		"/v1/mint/quote/bolt11/q1": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{"quote": "q1", "paid": true})
		},
	})
	defer srv.Close()

	c := NewClient(srv.URL, "sat", nil, zap.NewNop())
	quote, err := c.CheckFundingQuote(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, engine.QuotePaid, quote.State)
}

func TestSplitOverWire(t *testing.T) {
	srv := newMintServer(t, map[string]http.HandlerFunc{
		"/v1/swap": func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Inputs  []domain.ProofUnit `json:"inputs"`
				Outputs []BlindedMessage   `json:"outputs"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, domain.SumUnits(body.Inputs), sumBlinded(body.Outputs))

			sigs := make([]BlindSignature, len(body.Outputs))
			for i, o := range body.Outputs {
				sigs[i] = BlindSignature{Amount: o.Amount, KeysetID: o.KeysetID, C: "02c" + o.B}
			}
			writeJSON(t, w, map[string]any{"signatures": sigs})
		},
	})
	defer srv.Close()

	c := NewClient(srv.URL, "sat", &stubBlinder{}, zap.NewNop())
	inputs := []domain.ProofUnit{
		{KeysetID: "00ad268c4d1f5826", Amount: 64, Secret: "s1", C: "c1"},
	}
	result, err := c.Split(context.Background(), 40, inputs)
	require.NoError(t, err)
	assert.Equal(t, int64(24), domain.SumUnits(result.Keep))
	assert.Equal(t, int64(40), domain.SumUnits(result.Send))
}

func TestPayWithBlankOutputs(t *testing.T) {
	srv := newMintServer(t, map[string]http.HandlerFunc{
		"/v1/melt/bolt11": func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Quote   string             `json:"quote"`
				Inputs  []domain.ProofUnit `json:"inputs"`
				Outputs []BlindedMessage   `json:"outputs"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "pq1", body.Quote)
			require.Len(t, body.Outputs, 2) // fee reserve 3 needs two blanks

			writeJSON(t, w, map[string]any{
				"state":            "PAID",
				"payment_preimage": "abcd",
				"change": []BlindSignature{
					{Amount: 1, KeysetID: body.Outputs[0].KeysetID, C: "02chg1"},
				},
			})
		},
	})
	defer srv.Close()

	c := NewClient(srv.URL, "sat", &stubBlinder{}, zap.NewNop())
	result, err := c.Pay(context.Background(),
		&engine.PaymentQuote{QuoteID: "pq1", Amount: 20, FeeReserve: 3},
		[]domain.ProofUnit{{KeysetID: "k", Amount: 23, Secret: "s", C: "c"}})
	require.NoError(t, err)
	assert.True(t, result.Paid)
	assert.Equal(t, "abcd", result.Preimage)
	assert.Equal(t, int64(1), domain.SumUnits(result.Change))
}

func TestNoBlinderRejectsSwapOperations(t *testing.T) {
	srv := newMintServer(t, nil)
	defer srv.Close()

	c := NewClient(srv.URL, "sat", nil, zap.NewNop())
	token, err := EncodeToken(srv.URL, sampleProofs(), "sat")
	require.NoError(t, err)

	_, err = c.Redeem(context.Background(), token)
	assert.ErrorIs(t, err, errNoBlinder)

	_, err = c.Split(context.Background(), 2, sampleProofs())
	assert.ErrorIs(t, err, errNoBlinder)
}

func TestMintErrorDetailSurfaces(t *testing.T) {
	srv := newMintServer(t, map[string]http.HandlerFunc{
		"/v1/melt/quote/bolt11": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(t, w, map[string]any{"detail": "invoice already paid", "code": 20006})
		},
	})
	defer srv.Close()

	c := NewClient(srv.URL, "sat", nil, zap.NewNop())
	_, err := c.RequestPaymentQuote(context.Background(), "lnbc...")
	require.ErrorContains(t, err, "invoice already paid")
}

func TestUnreachableMint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listening

	c := NewClient(srv.URL, "sat", nil, zap.NewNop())
	_, err := c.RequestFundingQuote(context.Background(), 10)
	var unreachable *xerrors.EngineUnreachableError
	require.ErrorAs(t, err, &unreachable)
}

func sumBlinded(msgs []BlindedMessage) int64 {
	var total int64
	for _, m := range msgs {
		total += m.Amount
	}
	return total
}
