package id

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// New returns a prefixed, lexicographically sortable id, e.g. tx_01J8....
func New(prefix string) string {
	u := ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0))
	return prefix + "_" + u.String()
}

func NewTxID() string { return New("tx") }

func NewWalletID() string { return New("bw") }
