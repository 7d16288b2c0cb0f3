package fakemint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeschylus/botwallets/internal/domain"
	"github.com/aeschylus/botwallets/internal/engine"
)

func TestRedeemRejectsDoubleSpend(t *testing.T) {
	m := New("sat")
	ctx := context.Background()

	units := []domain.ProofUnit{{KeysetID: "k", Amount: 8, Secret: "sx", C: "cx"}}
	token, err := m.EncodeToken(MintURL, units, "sat")
	require.NoError(t, err)

	fresh, err := m.Redeem(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(8), domain.SumUnits(fresh))

	_, err = m.Redeem(ctx, token)
	require.ErrorContains(t, err, "already spent")
}

func TestSplitRejectsUnknownProofs(t *testing.T) {
	m := New("sat")

	_, err := m.Split(context.Background(), 4, []domain.ProofUnit{
		{KeysetID: "k", Amount: 8, Secret: "never-issued", C: "c"},
	})
	require.ErrorContains(t, err, "unknown proof")
}

func TestMintQuoteLifecycle(t *testing.T) {
	m := New("sat")
	ctx := context.Background()

	q, err := m.RequestFundingQuote(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, engine.QuoteUnpaid, q.State)

	_, err = m.MintAgainstQuote(ctx, 100, q)
	require.ErrorContains(t, err, "not paid")

	m.SettleFunding(q.QuoteID)
	minted, err := m.MintAgainstQuote(ctx, 100, q)
	require.NoError(t, err)
	assert.Equal(t, int64(100), domain.SumUnits(minted))

	_, err = m.MintAgainstQuote(ctx, 100, q)
	require.ErrorContains(t, err, "already issued")
}

func TestPayConsumesInputsAndReturnsChange(t *testing.T) {
	m := New("sat")
	m.FeeReserve = 3
	m.ChangeReturn = 1
	ctx := context.Background()

	q, err := m.RequestFundingQuote(ctx, 32)
	require.NoError(t, err)
	m.SettleFunding(q.QuoteID)
	units, err := m.MintAgainstQuote(ctx, 32, q)
	require.NoError(t, err)

	pq, err := m.RequestPaymentQuote(ctx, "lnfake_x")
	require.NoError(t, err)
	assert.Equal(t, int64(3), pq.FeeReserve)

	result, err := m.Pay(ctx, pq, units)
	require.NoError(t, err)
	assert.True(t, result.Paid)
	assert.Equal(t, int64(1), domain.SumUnits(result.Change))

	// The inputs are gone: splitting them again must fail.
	_, err = m.Split(ctx, 1, units[:1])
	require.ErrorContains(t, err, "already spent")
}
