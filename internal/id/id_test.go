package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	got := New("tx")
	require.True(t, strings.HasPrefix(got, "tx_"))
	assert.Len(t, got, len("tx_")+26) // ULID is 26 chars

	assert.True(t, strings.HasPrefix(NewTxID(), "tx_"))
	assert.True(t, strings.HasPrefix(NewWalletID(), "bw_"))
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		got := NewTxID()
		require.False(t, seen[got], "duplicate id %s", got)
		seen[got] = true
	}
}
