package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hkhalid/estatechain-server/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindMatching(t *testing.T) {
	err := apperr.Validation("price must be greater than zero")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)

	// Kinds survive further wrapping
	wrapped := fmt.Errorf("handling submit: %w", err)
	assert.ErrorIs(t, wrapped, apperr.ErrValidation)

	var ae *apperr.Error
	require.ErrorAs(t, wrapped, &ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code())
}

func TestLedgerErrorCarriesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := apperr.Ledger("failed to read asset counter", cause)

	assert.ErrorIs(t, err, apperr.ErrLedger)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to read asset counter: connection refused", err.Error())
	assert.Equal(t, "LEDGER_ERROR", err.Code())
}

func TestCodes(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", apperr.NotFound("no such request").Code())
	assert.Equal(t, "AUTHORIZATION_ERROR", apperr.Authorization("not the contract owner").Code())
	assert.Equal(t, "INVALID_STATE", apperr.InvalidState("already approved").Code())
}

func TestMessageFormatting(t *testing.T) {
	err := apperr.NotFound("no listing request with id %s", "abc-123")
	assert.Equal(t, "no listing request with id abc-123", err.Error())
}
