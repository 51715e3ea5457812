package domain

import (
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesByCode(t *testing.T) {
	detailed := Wrap(ErrOfferNotActive, "offer %s ended", "summer")
	assert.ErrorIs(t, detailed, ErrOfferNotActive)
	assert.NotErrorIs(t, detailed, ErrOfferNotFound)
	assert.Equal(t, "offer is not active: offer summer ended", detailed.Error())

	wrapped := errors.Wrap(detailed, "apply offer")
	assert.ErrorIs(t, wrapped, ErrOfferNotActive)

	de, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindPolicy, de.Kind)

	_, ok = AsError(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestWrapCauseKeepsTheCause(t *testing.T) {
	cause := errors.New("lock not acquired")
	err := WrapCause(ErrLockContention, cause)

	assert.ErrorIs(t, err, ErrLockContention)
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable())
	assert.False(t, ErrEmptyCart.Retryable())
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "validation", ErrInvalidQuantity.Kind.String())
	assert.Equal(t, "not_found", ErrOrderNotFound.Kind.String())
	assert.Equal(t, "policy", ErrMinCartNotMet.Kind.String())
	assert.Equal(t, "concurrency", ErrLockContention.Kind.String())
	assert.Equal(t, "unknown", ErrorKind(0).String())
}
