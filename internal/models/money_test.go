package models

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "7.75", "7.75"},
		{"integer", "500", "500"},
		{"thousands separator", "1,234.56", "1234.56"},
		{"comma decimal", "12,5", "12.5"},
		{"comma thousands only", "1,234", "1234"},
		{"currency suffix", "7.75 SAR", "7.75"},
		{"currency prefix", "SAR 7.75", "7.75"},
		{"whitespace", "  42  ", "42"},
		{"negative", "-30", "-30"},
		{"empty", "", "0"},
		{"garbage", "abc", "0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseAmount(tc.in)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
				"ParseAmount(%q) = %s, want %s", tc.in, got, tc.want)
		})
	}
}

func TestParseAmountFloat(t *testing.T) {
	assert.True(t, ParseAmountFloat(12.5).Equal(decimal.RequireFromString("12.5")))
	assert.True(t, ParseAmountFloat(math.NaN()).IsZero())
	assert.True(t, ParseAmountFloat(math.Inf(1)).IsZero())
	assert.True(t, ParseAmountFloat(1e16).IsZero())
}
