package domain

import "time"

// WalletMeta is the one-row-per-wallet identity record. Created on first use,
// timestamp-touched on subsequent use, never deleted by normal operation.
type WalletMeta struct {
	ID        string    `json:"id"`
	MintURL   string    `json:"mint_url"`
	Unit      string    `json:"unit"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WalletInfo struct {
	ID        string    `json:"id"`
	MintURL   string    `json:"mint_url"`
	Unit      string    `json:"unit"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// MintInvoice is returned from a funding request: pay the invoice, then claim
// against the quote id.
type MintInvoice struct {
	QuoteID string `json:"quote_id"`
	Invoice string `json:"invoice"`
	Amount  int64  `json:"amount"`
	Expiry  int64  `json:"expiry"`
}

// MeltResult reports the outcome of paying an external invoice.
type MeltResult struct {
	Paid     bool    `json:"paid"`
	Preimage *string `json:"preimage,omitempty"`
	Fee      int64   `json:"fee"`
	Change   int64   `json:"change"`
}
