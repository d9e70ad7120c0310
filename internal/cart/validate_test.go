package cart

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQuantity(t *testing.T) {
	tests := []struct {
		name      string
		candidate float64
		stock     int
		want      ErrorKind
	}{
		{name: "accepted at stock", candidate: 5, stock: 5},
		{name: "accepted at one", candidate: 1, stock: 10},
		{name: "zero", candidate: 0, stock: 10, want: BelowMinimum},
		{name: "negative", candidate: -2, stock: 10, want: BelowMinimum},
		{name: "above stock", candidate: 11, stock: 10, want: AboveMaximum},
		{name: "no stock", candidate: 1, stock: 0, want: AboveMaximum},
		{name: "fraction", candidate: 2.5, stock: 10, want: NotAnInteger},
		{name: "fraction below one", candidate: 0.5, stock: 10, want: NotAnInteger},
		{name: "nan", candidate: math.NaN(), stock: 10, want: NotAnInteger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuantity(tt.candidate, tt.stock)
			if tt.want == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestValidationError_IsAndMessage(t *testing.T) {
	err := ValidateQuantity(11, 10)
	assert.True(t, errors.Is(err, ErrAboveMaximum))
	assert.False(t, errors.Is(err, ErrBelowMinimum))
	assert.Equal(t, "Maximum quantity is 10 (available stock)", err.Error())

	err = ValidateQuantity(0, 10)
	assert.True(t, errors.Is(err, ErrBelowMinimum))
	assert.Equal(t, "Quantity must be at least 1", err.Error())

	assert.Equal(t, ErrorKind(0), KindOf(errors.New("other")))
	assert.Equal(t, "ABOVE_MAXIMUM", AboveMaximum.String())
}

func TestResolveKey(t *testing.T) {
	assert.Equal(t, "7", ResolveKey(7, ""))
	assert.Equal(t, "7-3:Red", ResolveKey(7, "Red"))
	assert.Equal(t, ResolveKey(7, "Red"), ResolveKey(7, "Red"))

	// the naive "id-variant" join would map both of these to "1-2-x"
	assert.NotEqual(t, ResolveKey(1, "2-x"), ResolveKey(12, "x"))
	assert.NotEqual(t, ResolveKey(1, "1:a"), ResolveKey(1, "1"))
	assert.NotEqual(t, ResolveKey(12, ""), ResolveKey(1, "2"))
}

func TestDiscountedPriceAndLabel(t *testing.T) {
	assert.InDelta(t, 45000, DiscountedPrice(spandex), 1e-9)
	assert.InDelta(t, 80000, DiscountedPrice(cotton), 1e-9)
	assert.Equal(t, "Maroon (8012)", ColorVariant{Name: "Maroon", Code: "8012"}.Label())
}

func TestRecompute(t *testing.T) {
	items := []Item{
		{Product: spandex, Quantity: 2},
		{Product: cotton, Quantity: 3},
	}
	got := Recompute(items)
	assert.Equal(t, 5, got.TotalItems)
	assert.InDelta(t, 90000+240000, got.Subtotal, 1e-9)
	assert.Equal(t, Totals{}, Recompute(nil))
}
