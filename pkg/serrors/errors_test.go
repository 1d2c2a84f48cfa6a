package serrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseErrorIsByCode(t *testing.T) {
	base := NewError("E_ONE", "first", "")
	other := NewError("E_TWO", "second", "")

	require.ErrorIs(t, base, base)
	assert.False(t, errors.Is(base, other))

	specific := base.WithMessage("first, but with detail")
	require.ErrorIs(t, specific, base, "WithMessage keeps the code")
	assert.Equal(t, "first, but with detail", specific.Message)
	assert.Equal(t, "first", base.Message, "the base error is never mutated")
}

func TestBaseErrorWrapped(t *testing.T) {
	base := NewError("E_ONE", "first", "")
	wrapped := fmt.Errorf("loading: %w", base.WithMessage("detail"))
	require.ErrorIs(t, wrapped, base)
}

func TestBaseErrorString(t *testing.T) {
	assert.Equal(t, "E_ONE: first", NewError("E_ONE", "first", "").Error())
	assert.Equal(t, "E_ONE: first (try again)", NewError("E_ONE", "first", "try again").Error())
}
