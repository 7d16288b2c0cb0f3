package xerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestInsufficientBalanceErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("send: %w", &InsufficientBalanceError{Required: 40, Available: 16})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	var ib *InsufficientBalanceError
	assert.ErrorAs(t, err, &ib)
	assert.Equal(t, int64(40), ib.Required)
}

func TestEngineUnreachableUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := &EngineUnreachableError{Endpoint: "https://mint.example.com", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "mint.example.com")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
}

func TestInvalidTokenErrorMessage(t *testing.T) {
	assert.Equal(t, "invalid or malformed ecash token", (&InvalidTokenError{}).Error())
	assert.Equal(t, "invalid ecash token: missing cashu prefix",
		(&InvalidTokenError{Reason: "missing cashu prefix"}).Error())
}
