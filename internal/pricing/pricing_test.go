package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewQuote_WidgetGadget(t *testing.T) {
	lines := []Line{
		{Price: d("10.00"), Quantity: 2},
		{Price: d("5.00"), Quantity: 1},
	}

	q, err := NewQuote(lines, d("2675.0"))
	require.NoError(t, err)

	assert.True(t, q.Subtotal.Equal(d("25.00")), q.Subtotal.String())
	assert.True(t, q.Tax.Equal(d("1.75")), q.Tax.String())
	assert.True(t, q.Total.Equal(d("26.75")), q.Total.String())
	assert.True(t, q.TotalExternal.Equal(d("0.01")), q.TotalExternal.String())
}

func TestTax_RoundsToCents(t *testing.T) {
	tests := []struct {
		subtotal string
		want     string
	}{
		{"0", "0"},
		{"19.99", "1.40"},
		{"3.33", "0.23"},
		{"100", "7"},
	}
	for _, tt := range tests {
		t.Run(tt.subtotal, func(t *testing.T) {
			got := Tax(d(tt.subtotal))
			assert.True(t, got.Equal(d(tt.want)), "got %s", got)
		})
	}
}

func TestNewQuote_ExternalSixPlaces(t *testing.T) {
	q, err := NewQuote([]Line{{Price: d("1"), Quantity: 1}}, d("3"))
	require.NoError(t, err)
	// 1.07 / 3 = 0.356666...
	assert.True(t, q.TotalExternal.Equal(d("0.356667")), q.TotalExternal.String())
}

func TestNewQuote_RejectsNonPositiveRate(t *testing.T) {
	_, err := NewQuote(nil, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = NewQuote(nil, d("-1"))
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestSubtotal_Empty(t *testing.T) {
	assert.True(t, Subtotal(nil).IsZero())
}
