package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aeschylus/botwallets/internal/engine"
	"github.com/aeschylus/botwallets/internal/engine/fakemint"
	"github.com/aeschylus/botwallets/internal/repository/memstore"
	"github.com/aeschylus/botwallets/internal/usecase/wallet"
)

type fakeAdapter struct {
	handler func(ctx context.Context, cmd Command, reply ReplyFunc)
	started bool
	stopped bool
}

func (a *fakeAdapter) Platform() string { return "faketalk" }

func (a *fakeAdapter) Register(fn func(ctx context.Context, cmd Command, reply ReplyFunc)) {
	a.handler = fn
}

func (a *fakeAdapter) Start(ctx context.Context) error {
	a.started = true
	return nil
}

func (a *fakeAdapter) Stop(ctx context.Context) error {
	a.stopped = true
	return nil
}

func newTestRegistry(t *testing.T) *wallet.Registry {
	t.Helper()
	factory := func(mintURL, unit string) (engine.Engine, error) {
		return fakemint.New(unit), nil
	}
	r := wallet.NewRegistry(memstore.New(), factory, nil, zap.NewNop())
	t.Cleanup(r.Close)
	return r
}

func TestNewWiresAdapter(t *testing.T) {
	adapter := &fakeAdapter{}
	b, err := New(newTestRegistry(t), Config{
		Adapter: adapter,
		MintURL: fakemint.MintURL,
		Unit:    "sat",
	}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, adapter.handler, "handler must be registered on the adapter")

	// Platform name becomes the wallet id prefix when none is configured.
	var reply string
	adapter.handler(context.Background(), Command{Name: "balance", UserID: "u1"},
		func(_ context.Context, text string) error {
			reply = text
			return nil
		})
	assert.Equal(t, "Balance: 0 sats", reply)

	require.NoError(t, b.Start(context.Background()))
	assert.True(t, adapter.started)
	require.NoError(t, b.Stop(context.Background()))
	assert.True(t, adapter.stopped)
}

func TestNewRequiresAdapter(t *testing.T) {
	_, err := New(newTestRegistry(t), Config{MintURL: fakemint.MintURL, Unit: "sat"}, zap.NewNop())
	require.ErrorContains(t, err, "adapter")
}
