package xerrors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Generic
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// Ledger
var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrDuplicateProof       = errors.New("proof already exists")
	ErrDuplicateTransaction = errors.New("transaction already exists")
	ErrReservationConflict  = errors.New("proof not in expected state for reservation")
	ErrStateMismatch        = errors.New("proof or transaction not in expected state")
)

func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

func IsUniqueViolation(err error) bool {
	return ParsePGErrorCode(err) == "23505"
}

// InsufficientBalanceError carries the figures callers need to render a
// useful message.
type InsufficientBalanceError struct {
	Required  int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: need %d but only %d available", e.Required, e.Available)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// InvalidTokenError marks a malformed or unparseable ecash token string.
type InvalidTokenError struct {
	Reason string
}

func (e *InvalidTokenError) Error() string {
	if e.Reason == "" {
		return "invalid or malformed ecash token"
	}
	return "invalid ecash token: " + e.Reason
}

// EngineUnreachableError wraps a failure to reach the token engine's endpoint.
type EngineUnreachableError struct {
	Endpoint string
	Err      error
}

func (e *EngineUnreachableError) Error() string {
	return fmt.Sprintf("failed to reach mint %s: %v", e.Endpoint, e.Err)
}

func (e *EngineUnreachableError) Unwrap() error { return e.Err }
