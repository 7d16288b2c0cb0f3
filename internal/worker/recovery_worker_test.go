package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sweepCounter struct {
	calls atomic.Int64
	err   error
}

func (s *sweepCounter) RecoverStuckPending(_ context.Context, _ time.Duration) (int, error) {
	s.calls.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return 1, nil
}

func TestRecoveryWorkerSweeps(t *testing.T) {
	store := &sweepCounter{}
	w := NewRecoveryWorker(store, 10*time.Millisecond, time.Hour, zap.NewNop())

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return store.calls.Load() >= 2 },
		time.Second, 5*time.Millisecond)

	w.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRecoveryWorkerStopsOnContextCancel(t *testing.T) {
	store := &sweepCounter{err: errors.New("db down")}
	w := NewRecoveryWorker(store, 10*time.Millisecond, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	// A failing sweep must not kill the loop.
	require.Eventually(t, func() bool { return store.calls.Load() >= 2 },
		time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
	assert.GreaterOrEqual(t, store.calls.Load(), int64(2))
}
