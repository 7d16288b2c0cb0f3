package domain

import "time"

type TxType string

const (
	TxReceive TxType = "receive"
	TxSend    TxType = "send"
	TxMint    TxType = "mint"
	TxMelt    TxType = "melt"
)

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
)

// Memo carries optional attribution attached to a transaction by the caller.
type Memo struct {
	Sender   string         `json:"sender,omitempty"`
	Receiver string         `json:"receiver,omitempty"`
	Note     string         `json:"note,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TransactionRecord is the audit/idempotency entry for one logical operation.
// Status starts at pending and transitions exactly once to completed or failed.
type TransactionRecord struct {
	ID        string         `json:"id"`
	WalletID  string         `json:"wallet_id"`
	Type      TxType         `json:"type"`
	Status    TxStatus       `json:"status"`
	Amount    int64          `json:"amount"`
	Fee       int64          `json:"fee"`
	Token     *string        `json:"token,omitempty"`
	Invoice   *string        `json:"invoice,omitempty"`
	QuoteID   *string        `json:"quote_id,omitempty"`
	Sender    *string        `json:"sender,omitempty"`
	Receiver  *string        `json:"receiver,omitempty"`
	Note      *string        `json:"note,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TransactionQuery filters and pages a wallet's history, most-recent-first.
type TransactionQuery struct {
	Type   TxType
	Status TxStatus
	Limit  int
	Offset int
}
