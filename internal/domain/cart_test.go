package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func priced(variant string, qty int, amount string) CartLine {
	return CartLine{
		VariantID: variant,
		Quantity:  qty,
		UnitPrice: Money{Amount: decimal.RequireFromString(amount), CurrencyCode: "USD"},
	}
}

func TestCartTotals(t *testing.T) {
	cart := Cart{Lines: []CartLine{priced("a", 2, "299.99"), priced("b", 1, "0.02")}}

	assert.Equal(t, 3, cart.TotalItemCount())
	total := cart.TotalPrice()
	assert.Equal(t, "600", total.Amount.String())
	assert.Equal(t, "USD", total.CurrencyCode)
}

func TestEmptyCartTotals(t *testing.T) {
	var cart Cart

	assert.Zero(t, cart.TotalItemCount())
	total := cart.TotalPrice()
	assert.True(t, total.Amount.IsZero())
	assert.Empty(t, total.CurrencyCode)
}

func TestNormalizeLinesFoldsAndDrops(t *testing.T) {
	lines := []CartLine{
		priced("a", 1, "10"),
		priced(" ", 4, "10"),
		priced("b", 0, "10"),
		priced("a", 2, "10"),
		priced("c", 1, "10"),
	}

	got := NormalizeLines(lines)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].VariantID)
	assert.Equal(t, 3, got[0].Quantity)
	assert.Equal(t, "c", got[1].VariantID)
}

func TestCloneLinesDoesNotShareOptions(t *testing.T) {
	orig := []CartLine{{
		VariantID: "a",
		Quantity:  1,
		Product:   ProductSnapshot{SelectedOptions: []SelectedOption{{Name: "Size", Value: "Queen"}}},
	}}

	clone := CloneLines(orig)
	clone[0].Product.SelectedOptions[0].Value = "King"

	assert.Equal(t, "Queen", orig[0].Product.SelectedOptions[0].Value)
	assert.NotNil(t, CloneLines(nil))
}

func TestErrorCodesRoundTrip(t *testing.T) {
	for _, kind := range []error{ErrValidationFailed, ErrUpstreamUnavailable, ErrIntegration, ErrNetwork, ErrNotFound} {
		wrapped := fmt.Errorf("create cart: %w", NewCheckoutError(kind, "boom"))
		assert.ErrorIs(t, wrapped, ErrorFromCode(ErrorCode(wrapped)))
		assert.Equal(t, "boom", ErrorMessage(wrapped))
	}
	assert.Equal(t, "internal_error", ErrorCode(errors.New("x")))
	assert.Nil(t, ErrorFromCode("internal_error"))
}
