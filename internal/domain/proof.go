package domain

import "time"

type ProofState string

const (
	ProofUnspent ProofState = "unspent"
	ProofPending ProofState = "pending"
	ProofSpent   ProofState = "spent"
)

// Proof is a locally tracked unit of redeemable value. Its id is the token's
// public commitment value, which is unique across all wallets in a store.
type Proof struct {
	ID          string     `json:"id"`
	WalletID    string     `json:"wallet_id"`
	Amount      int64      `json:"amount"`
	Secret      string     `json:"secret"`
	C           string     `json:"c"`
	KeysetID    string     `json:"keyset_id"`
	State       ProofState `json:"state"`
	CreatedByTx *string    `json:"created_by_tx,omitempty"`
	SpentByTx   *string    `json:"spent_by_tx,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProofUnit is the engine-side view of a proof: what crosses the wire to and
// from the mint. The ledger derives the local Proof id from C.
type ProofUnit struct {
	KeysetID string `json:"id"`
	Amount   int64  `json:"amount"`
	Secret   string `json:"secret"`
	C        string `json:"C"`
}

// Unit converts a stored proof back to its wire form.
func (p *Proof) Unit() ProofUnit {
	return ProofUnit{
		KeysetID: p.KeysetID,
		Amount:   p.Amount,
		Secret:   p.Secret,
		C:        p.C,
	}
}

// SumUnits totals the amounts of a set of proof units.
func SumUnits(units []ProofUnit) int64 {
	var total int64
	for _, u := range units {
		total += u.Amount
	}
	return total
}
