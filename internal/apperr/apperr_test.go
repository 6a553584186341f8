package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errEmpty = errors.New("cart is empty")

func TestKindOf_WrappedChain(t *testing.T) {
	err := fmt.Errorf("checkout: %w", Validation("order.create", errEmpty))

	assert.Equal(t, KindValidation, KindOf(err))
	assert.True(t, Is(err, KindValidation))
	assert.ErrorIs(t, err, errEmpty)
	assert.Equal(t, "checkout: order.create: cart is empty", err.Error())
}

func TestKindOf_Plain(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errEmpty))
	assert.False(t, Is(nil, KindUnknown))
}

func TestNew_NilErr(t *testing.T) {
	assert.NoError(t, Persistence("op", nil))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "region_unavailable", KindRegionUnavailable.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
