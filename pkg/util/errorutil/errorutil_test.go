package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassesThroughWrappedDomainErrors(t *testing.T) {
	base := NewForbidden("only staff may claim")
	wrapped := fmt.Errorf("claim: %w", base)

	de := ToDomainError(wrapped)
	require.NotNil(t, de)
	assert.Equal(t, CodeForbidden, de.Code)
	assert.Equal(t, http.StatusForbidden, de.HTTPStatus)
	assert.Equal(t, "only staff may claim", de.Message)
}

func TestToDomainErrorMapsNoRowsToNotFound(t *testing.T) {
	de := ToDomainError(fmt.Errorf("get ticket: %w", pgx.ErrNoRows))
	require.NotNil(t, de)
	assert.Equal(t, CodeNotFound, de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
}

func TestToDomainErrorHidesUnknownErrors(t *testing.T) {
	cause := errors.New("socket closed")
	de := ToDomainError(cause)
	require.NotNil(t, de)
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, "internal server error", de.Message)
	assert.ErrorIs(t, de, cause)
}

func TestMapErrorKeepsNil(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.Nil(t, ToDomainError(nil))
}

func TestHasCode(t *testing.T) {
	err := NewPreconditionFailed("channel topic is missing", nil)
	assert.True(t, HasCode(err, CodePrecondition))
	assert.True(t, HasCode(fmt.Errorf("wrap: %w", err), CodePrecondition))
	assert.False(t, HasCode(err, CodeForbidden))
	assert.False(t, HasCode(errors.New("plain"), CodePrecondition))
}
