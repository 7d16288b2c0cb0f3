package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aeschylus/botwallets/internal/engine"
	"github.com/aeschylus/botwallets/internal/engine/fakemint"
	"github.com/aeschylus/botwallets/internal/repository/memstore"
)

func TestRegistrySharesEnginesAndWallets(t *testing.T) {
	ctx := context.Background()
	var built int
	factory := func(mintURL, unit string) (engine.Engine, error) {
		built++
		return fakemint.New(unit), nil
	}
	r := NewRegistry(memstore.New(), factory, nil, zap.NewNop())
	defer r.Close()

	a, err := r.Wallet(ctx, "bw_a", fakemint.MintURL, "sat")
	require.NoError(t, err)
	b, err := r.Wallet(ctx, "bw_b", fakemint.MintURL, "sat")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, 1, built, "one engine per (mint, unit) pair")

	again, err := r.Wallet(ctx, "bw_a", fakemint.MintURL, "sat")
	require.NoError(t, err)
	assert.Same(t, a, again)

	_, err = r.Wallet(ctx, "bw_c", "fake://other", "sat")
	require.NoError(t, err)
	assert.Equal(t, 2, built)
}

func TestRegistryRefusesAfterClose(t *testing.T) {
	factory := func(mintURL, unit string) (engine.Engine, error) {
		return fakemint.New(unit), nil
	}
	r := NewRegistry(memstore.New(), factory, nil, zap.NewNop())
	r.Close()
	r.Close() // idempotent

	_, err := r.Wallet(context.Background(), "bw_a", fakemint.MintURL, "sat")
	require.ErrorContains(t, err, "closed")
}
