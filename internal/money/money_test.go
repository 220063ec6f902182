package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCommission(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		want     string
	}{
		{"happy path S1", "10.00", "0.30"},
		{"partial 60% S3", "6.00", "0.18"},
		{"rounds half-even", "1.50", "0.04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Commission(decimal.RequireFromString(tt.subtotal))
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestRound2HalfEven(t *testing.T) {
	// 2.005 rounds to 2.00 under half-even (banker's rounding), not 2.01.
	got := Round2(decimal.RequireFromString("2.005"))
	assert.Equal(t, "2.00", got.StringFixed(2))
}

func TestFromStringInvalid(t *testing.T) {
	assert.True(t, FromString("not-a-number").Equal(Zero))
}
